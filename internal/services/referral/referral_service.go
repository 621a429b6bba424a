// Package referral implements referral codes, single-use redemption,
// the append-only commission ledger and the withdrawal workflow.
package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/utils"
	"gorm.io/gorm"
)

// ReferralService handles referral operations
type ReferralService struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a ReferralService
type Option func(*ReferralService)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *ReferralService) {
		s.now = now
	}
}

// NewReferralService creates a new referral service
func NewReferralService(db *gorm.DB, opts ...Option) *ReferralService {
	s := &ReferralService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReferralCodeInput describes a new referral code
type CreateReferralCodeInput struct {
	Code                 string    `json:"code"`
	DiscountPercentage   float64   `json:"discount_percentage"`
	CommissionPercentage float64   `json:"commission_percentage"`
	ExpiryDate           time.Time `json:"expiry_date"`
}

// CreateReferralCode mints a referral code for an affiliator. When no
// code string is supplied a random one is generated.
func (s *ReferralService) CreateReferralCode(ctx context.Context, ownerID uuid.UUID, input CreateReferralCodeInput) (*models.ReferralCode, error) {
	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding user")
	}
	if owner.Role != models.RoleAffiliator {
		return nil, apperrors.New(apperrors.KindInvalidUser, "referral codes can only be owned by affiliators")
	}

	var code models.ReferralCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := utils.GenerateUniqueID(
			func() string { return utils.ReferralCodeID(s.now()) },
			func(candidate string) (bool, error) {
				var n int64
				if err := tx.Model(&models.ReferralCode{}).Where("id = ?", candidate).Count(&n).Error; err != nil {
					return false, err
				}
				return n > 0, nil
			},
		)
		if err != nil {
			return err
		}

		codeString := input.Code
		if codeString == "" {
			codeString, err = utils.GenerateUniqueID(
				func() string { return utils.RandomAlnum(8) },
				func(candidate string) (bool, error) {
					var n int64
					if err := tx.Model(&models.ReferralCode{}).Where("code = ?", candidate).Count(&n).Error; err != nil {
						return false, err
					}
					return n > 0, nil
				},
			)
			if err != nil {
				return err
			}
		}

		code = models.ReferralCode{
			ID:                   id,
			OwnerID:              ownerID,
			Code:                 codeString,
			DiscountPercentage:   input.DiscountPercentage,
			CommissionPercentage: input.CommissionPercentage,
			ExpiryDate:           input.ExpiryDate,
			IsActive:             true,
		}
		if err := tx.Create(&code).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating referral code")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// ApplyResult is what a mentee gets back after redeeming a code
type ApplyResult struct {
	ReferralUsageID    uuid.UUID `json:"referral_usage_id"`
	DiscountPercentage float64   `json:"discount_percentage"`
}

// ApplyReferralCode redeems a code for a user in a given context. A
// user may redeem a given code at most once; the unique (user, code)
// index is the storage backstop for concurrent redemptions.
func (s *ReferralService) ApplyReferralCode(ctx context.Context, userID uuid.UUID, codeString string, usageContext models.ReferralUsageContext) (*ApplyResult, error) {
	if !usageContext.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidStatus, "unknown referral context %q", usageContext)
	}

	var code models.ReferralCode
	if err := s.db.WithContext(ctx).First(&code, "code = ?", codeString).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "referral code not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral code")
	}
	if !code.IsActive {
		return nil, apperrors.New(apperrors.KindInactive, "referral code is not active")
	}
	if !code.ExpiryDate.IsZero() && code.ExpiryDate.Before(s.now()) {
		return nil, apperrors.New(apperrors.KindInactive, "referral code has expired")
	}

	var usage models.ReferralUsage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ReferralUsage{}).
			Where("user_id = ? AND referral_code_id = ?", userID, code.ID).
			Count(&n).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "checking referral usage")
		}
		if n > 0 {
			return apperrors.New(apperrors.KindAlreadyUsed, "referral code has already been used by this user")
		}

		usage = models.ReferralUsage{
			UserID:         userID,
			ReferralCodeID: code.ID,
			Context:        usageContext,
			UsedAt:         s.now(),
		}
		if err := tx.Create(&usage).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "recording referral usage")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ApplyResult{
		ReferralUsageID:    usage.ID,
		DiscountPercentage: code.DiscountPercentage,
	}, nil
}

// GetReferralCode loads a code by id
func (s *ReferralService) GetReferralCode(ctx context.Context, id string) (*models.ReferralCode, error) {
	var code models.ReferralCode
	if err := s.db.WithContext(ctx).First(&code, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "referral code not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral code")
	}
	return &code, nil
}

// ListReferralCodes returns the codes owned by a user
func (s *ReferralService) ListReferralCodes(ctx context.Context, ownerID uuid.UUID) ([]models.ReferralCode, error) {
	var codes []models.ReferralCode
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "listing referral codes")
	}
	return codes, nil
}
