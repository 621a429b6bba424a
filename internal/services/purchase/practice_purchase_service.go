// Package purchase implements practice purchases. A purchase commits in
// one storage transaction together with its payment row and, when a
// referral was applied, one commission ledger row.
package purchase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/utils"
	"gorm.io/gorm"
)

// PurchaseService handles practice purchase operations
type PurchaseService struct {
	db     *gorm.DB
	txOpts []*sql.TxOptions
	now    func() time.Time
}

// Option configures a PurchaseService
type Option func(*PurchaseService)

// WithSerializableTransactions makes purchase creation run under
// serializable isolation
func WithSerializableTransactions() Option {
	return func(s *PurchaseService) {
		s.txOpts = []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *PurchaseService) {
		s.now = now
	}
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(db *gorm.DB, opts ...Option) *PurchaseService {
	s := &PurchaseService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePurchaseInput is the buyer-supplied purchase request
type CreatePurchaseInput struct {
	PracticeID      uuid.UUID  `json:"practice_id"`
	ReferralUsageID *uuid.UUID `json:"referral_usage_id,omitempty"`
}

// CreatePurchaseResult carries the created purchase plus the price
// breakdown for display
type CreatePurchaseResult struct {
	Purchase      *models.PracticePurchase `json:"purchase"`
	OriginalPrice float64                  `json:"original_price"`
	FinalPrice    float64                  `json:"final_price"`
}

// CreatePurchase validates the request and atomically creates the
// purchase, its payment and, when a referral usage is supplied, the
// commission ledger row
func (s *PurchaseService) CreatePurchase(ctx context.Context, userID uuid.UUID, input CreatePurchaseInput) (*CreatePurchaseResult, error) {
	var practice models.Practice
	if err := s.db.WithContext(ctx).First(&practice, "id = ?", input.PracticeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "practice not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding practice")
	}
	if !practice.IsActive {
		return nil, apperrors.New(apperrors.KindInactive, "practice is not active")
	}

	var userCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&userCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "checking user")
	}
	if userCount == 0 {
		return nil, apperrors.New(apperrors.KindInvalidUser, "user does not exist")
	}

	var referralCode *models.ReferralCode
	if input.ReferralUsageID != nil {
		code, err := s.loadUnconsumedReferral(s.db.WithContext(ctx), *input.ReferralUsageID)
		if err != nil {
			return nil, err
		}
		referralCode = code
	}

	originalPrice := practice.Price
	finalPrice := originalPrice
	commission := 0.0
	if referralCode != nil {
		finalPrice = originalPrice * (1 - referralCode.DiscountPercentage/100)
		commission = finalPrice * referralCode.CommissionPercentage / 100
	}

	var purchaseID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ReferralUsageID != nil {
			if _, err := s.loadUnconsumedReferral(tx, *input.ReferralUsageID); err != nil {
				return err
			}
		}

		purchase := models.PracticePurchase{
			UserID:          userID,
			PracticeID:      practice.ID,
			ReferralUsageID: input.ReferralUsageID,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating practice purchase")
		}
		purchaseID = purchase.ID

		paymentID, err := utils.GenerateUniqueID(
			func() string { return utils.PurchasePaymentID(s.now()) },
			func(candidate string) (bool, error) {
				var n int64
				if err := tx.Model(&models.Payment{}).Where("id = ?", candidate).Count(&n).Error; err != nil {
					return false, err
				}
				return n > 0, nil
			},
		)
		if err != nil {
			return err
		}

		payment := models.Payment{
			ID:                 paymentID,
			PracticePurchaseID: &purchaseID,
			Amount:             finalPrice,
			Status:             models.PaymentStatusPending,
		}
		if !payment.OwnedByExactlyOne() {
			return apperrors.New(apperrors.KindInternal, "payment %s must belong to exactly one of booking or practice purchase", paymentID)
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating payment")
		}

		if referralCode != nil {
			ledgerRow := models.ReferralCommission{
				ReferralCodeID: referralCode.ID,
				TransactionID:  paymentID,
				Amount:         commission,
			}
			if err := tx.Create(&ledgerRow).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "recording referral commission")
			}
		}

		return nil
	}, s.txOpts...)
	if err != nil {
		return nil, err
	}

	created, err := s.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	return &CreatePurchaseResult{
		Purchase:      created,
		OriginalPrice: originalPrice,
		FinalPrice:    finalPrice,
	}, nil
}

// loadUnconsumedReferral loads a referral usage recorded for the
// practice purchase context and its code, failing when the usage is
// absent, recorded for a different context, or already consumed
func (s *PurchaseService) loadUnconsumedReferral(tx *gorm.DB, usageID uuid.UUID) (*models.ReferralCode, error) {
	var usage models.ReferralUsage
	if err := tx.First(&usage, "id = ?", usageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "referral usage not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral usage")
	}
	if usage.Context != models.ReferralContextPracticePurchase {
		return nil, apperrors.New(apperrors.KindAlreadyUsed, "referral usage was recorded for a different context")
	}

	var linked int64
	if err := tx.Model(&models.PracticePurchase{}).Where("referral_usage_id = ?", usageID).Count(&linked).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "checking referral usage link")
	}
	if linked == 0 {
		if err := tx.Model(&models.Booking{}).Where("referral_usage_id = ?", usageID).Count(&linked).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, err, "checking referral usage link")
		}
	}
	if linked > 0 {
		return nil, apperrors.New(apperrors.KindAlreadyUsed, "referral usage has already been consumed")
	}

	var code models.ReferralCode
	if err := tx.First(&code, "id = ?", usage.ReferralCodeID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral code")
	}
	return &code, nil
}

// GetPurchase loads a purchase with its payment
func (s *PurchaseService) GetPurchase(ctx context.Context, id uuid.UUID) (*models.PracticePurchase, error) {
	var purchase models.PracticePurchase
	err := s.db.WithContext(ctx).
		Preload("Payment").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "practice purchase not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding practice purchase")
	}
	return &purchase, nil
}

// ListPurchasesByUser returns every purchase a user has made
func (s *PurchaseService) ListPurchasesByUser(ctx context.Context, userID uuid.UUID) ([]models.PracticePurchase, error) {
	var purchases []models.PracticePurchase
	err := s.db.WithContext(ctx).
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "listing practice purchases")
	}
	return purchases, nil
}
