// Package payment bridges payment rows to the external gateway: it
// registers pending payments for collection and applies signed status
// callbacks.
package payment

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/services/payment/providers/duitku"
	"gorm.io/gorm"
)

// Gateway is the slice of the gateway client the service needs
type Gateway interface {
	CreateTransaction(orderID, productDetails, email, phone, method string, amount int64) (*duitku.CreateTransactionResponse, error)
	VerifyCallbackSignature(amount, merchantOrderID, signature string) bool
}

// PaymentService handles gateway payment operations
type PaymentService struct {
	db      *gorm.DB
	gateway Gateway
	now     func() time.Time
}

// Option configures a PaymentService
type Option func(*PaymentService)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) {
		s.now = now
	}
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, gateway Gateway, opts ...Option) *PaymentService {
	s := &PaymentService{db: db, gateway: gateway, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GatewayPaymentResult carries what the caller needs to send the payer
// to the gateway
type GatewayPaymentResult struct {
	PaymentID  string `json:"payment_id"`
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
	VANumber   string `json:"va_number,omitempty"`
}

// CreateGatewayPayment registers a pending payment with the gateway and
// stores the returned reference on the payment row
func (s *PaymentService) CreateGatewayPayment(ctx context.Context, paymentID, email, phone, method string) (*GatewayPaymentResult, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding payment")
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, apperrors.New(apperrors.KindInvalidStatus, "payment %s is %s, only pending payments can be collected", payment.ID, payment.Status)
	}

	amount := int64(math.Round(payment.Amount))
	resp, err := s.gateway.CreateTransaction(payment.ID, "MentorLink payment "+payment.ID, email, phone, method, amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGatewayFailure, err, "registering payment %s with gateway", payment.ID)
	}

	updates := map[string]interface{}{
		"transaction_id": resp.Reference,
		"payment_method": method,
		"gateway_response": models.JSON{
			"status_code":    resp.StatusCode,
			"status_message": resp.StatusMessage,
			"payment_url":    resp.PaymentURL,
		},
	}
	if err := s.db.WithContext(ctx).Model(&payment).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "storing gateway reference")
	}

	return &GatewayPaymentResult{
		PaymentID:  payment.ID,
		Reference:  resp.Reference,
		PaymentURL: resp.PaymentURL,
		VANumber:   resp.VANumber,
	}, nil
}

// CallbackInput is the form-encoded payload the gateway posts back
type CallbackInput struct {
	MerchantCode    string `form:"merchantCode"`
	Amount          string `form:"amount"`
	MerchantOrderID string `form:"merchantOrderId"`
	ResultCode      string `form:"resultCode"`
	Reference       string `form:"reference"`
	Signature       string `form:"signature"`
}

// HandleCallback verifies a gateway callback and settles the matching
// payment. Signature verification fails closed: a bad signature changes
// nothing.
func (s *PaymentService) HandleCallback(ctx context.Context, input CallbackInput) (*models.Payment, error) {
	if !s.gateway.VerifyCallbackSignature(input.Amount, input.MerchantOrderID, input.Signature) {
		return nil, apperrors.New(apperrors.KindInvalidSignature, "callback signature mismatch for order %s", input.MerchantOrderID)
	}

	status := models.PaymentStatusFailed
	if input.ResultCode == duitku.ResultCodeSuccess {
		status = models.PaymentStatusConfirmed
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", input.MerchantOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "payment %s not found", input.MerchantOrderID)
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "finding payment")
		}

		paidAt := s.now()
		updates := map[string]interface{}{
			"status":       status,
			"payment_date": &paidAt,
		}
		if input.Reference != "" {
			updates["transaction_id"] = input.Reference
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "settling payment")
		}
		payment.Status = status
		payment.PaymentDate = &paidAt

		if status != models.PaymentStatusConfirmed {
			return nil
		}

		// A confirmed payment confirms whatever it pays for.
		if payment.BookingID != nil {
			if err := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", *payment.BookingID, models.BookingStatusPending).
				Update("status", models.BookingStatusConfirmed).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "confirming booking")
			}
			if err := tx.Model(&models.BookingParticipant{}).
				Where("booking_id = ? AND is_leader = ?", *payment.BookingID, true).
				Update("payment_status", models.PaymentStatusConfirmed).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "confirming leader payment status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment loads a payment by id
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding payment")
	}
	return &payment, nil
}
