package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/services/payment"
	"github.com/mentorlink/backend/internal/services/payment/providers/duitku"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGateway struct {
	validSignature bool
}

func (g *stubGateway) CreateTransaction(orderID, productDetails, email, phone, method string, amount int64) (*duitku.CreateTransactionResponse, error) {
	return &duitku.CreateTransactionResponse{
		StatusCode: "00",
		Reference:  "GWREF-" + orderID,
		PaymentURL: "https://gateway.example.com/pay/" + orderID,
	}, nil
}

func (g *stubGateway) VerifyCallbackSignature(amount, merchantOrderID, signature string) bool {
	return g.validSignature
}

func setupCallbackRouter(t *testing.T, validSignature bool) (*gin.Engine, *gorm.DB, *models.Payment) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Booking{},
		&models.BookingParticipant{},
		&models.Payment{},
	))

	pay := &models.Payment{
		ID:     "PAY-PRC-20260831-0000000001",
		Amount: 150000,
		Status: models.PaymentStatusPending,
	}
	purchaseID := uuid.New()
	pay.PracticePurchaseID = &purchaseID
	require.NoError(t, db.Create(pay).Error)

	handler := NewPaymentHandler(payment.NewPaymentService(db, &stubGateway{validSignature: validSignature}))
	router := gin.New()
	router.POST("/api/webhooks/payment", handler.GatewayCallback)
	return router, db, pay
}

func postCallback(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGatewayCallbackSettlesPayment(t *testing.T) {
	router, db, pay := setupCallbackRouter(t, true)

	w := postCallback(router, url.Values{
		"merchantCode":    {"D0001"},
		"amount":          {"150000"},
		"merchantOrderId": {pay.ID},
		"resultCode":      {"00"},
		"reference":       {"GWREF-1"},
		"signature":       {"valid"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", pay.ID).Error)
	assert.Equal(t, models.PaymentStatusConfirmed, stored.Status)
}

func TestGatewayCallbackFailureStillAnswersOK(t *testing.T) {
	router, db, pay := setupCallbackRouter(t, true)

	w := postCallback(router, url.Values{
		"amount":          {"150000"},
		"merchantOrderId": {pay.ID},
		"resultCode":      {"01"},
		"signature":       {"valid"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", pay.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
}

func TestGatewayCallbackRejectsBadSignature(t *testing.T) {
	router, db, pay := setupCallbackRouter(t, false)

	w := postCallback(router, url.Values{
		"amount":          {"150000"},
		"merchantOrderId": {pay.ID},
		"resultCode":      {"00"},
		"signature":       {"forged"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", pay.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.PaymentDate)
}

func TestGatewayCallbackUnknownOrder(t *testing.T) {
	router, _, _ := setupCallbackRouter(t, true)

	w := postCallback(router, url.Values{
		"amount":          {"150000"},
		"merchantOrderId": {"PAY-PRC-20260831-9999999999"},
		"resultCode":      {"00"},
		"signature":       {"valid"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
