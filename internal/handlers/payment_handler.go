package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/services/payment"
)

// PaymentHandler handles payment collection and gateway callbacks
type PaymentHandler struct {
	paymentService *payment.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateGatewayPayment registers a pending payment with the gateway and
// returns the redirect URL
func (h *PaymentHandler) CreateGatewayPayment(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var input struct {
		PaymentID     string `json:"payment_id" binding:"required"`
		Email         string `json:"email" binding:"required,email"`
		PhoneNumber   string `json:"phone_number"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.paymentService.CreateGatewayPayment(c.Request.Context(), input.PaymentID, input.Email, input.PhoneNumber, input.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GatewayCallback receives the gateway's signed settlement callback.
// The gateway retries anything but 200, so a settled-as-failed payment
// still answers OK; only a bad signature or unknown order is rejected.
func (h *PaymentHandler) GatewayCallback(c *gin.Context) {
	var input payment.CallbackInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settled, err := h.paymentService.HandleCallback(c.Request.Context(), input)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInvalidSignature {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "payment_id": settled.ID, "payment_status": settled.Status})
}

// GetPayment returns one payment by id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	result, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
