package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// availableBalance computes, on the given handle, how much of a code's
// earned commissions is still withdrawable: earned minus every pending
// or paid withdrawal. Pending requests already encumber the balance so
// two concurrent requests cannot both spend the same commission.
func availableBalance(tx *gorm.DB, referralCodeID string) (float64, error) {
	var earned float64
	err := tx.Model(&models.ReferralCommission{}).
		Where("referral_code_id = ?", referralCodeID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&earned).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, err, "summing commissions")
	}

	var encumbered float64
	err = tx.Model(&models.CommissionPayment{}).
		Where("referral_code_id = ? AND status IN ?", referralCodeID,
			[]models.CommissionPaymentStatus{models.CommissionPaymentStatusPending, models.CommissionPaymentStatusPaid}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&encumbered).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, err, "summing withdrawals")
	}

	return earned - encumbered, nil
}

// AvailableBalance returns the withdrawable balance for a referral code
func (s *ReferralService) AvailableBalance(ctx context.Context, referralCodeID string) (float64, error) {
	return availableBalance(s.db.WithContext(ctx), referralCodeID)
}

// CommissionFilter narrows commission ledger listings
type CommissionFilter struct {
	From *time.Time
	To   *time.Time
}

// ListCommissions returns a page of ledger rows for a referral code
func (s *ReferralService) ListCommissions(ctx context.Context, referralCodeID string, filter CommissionFilter, page, pageSize int) ([]models.ReferralCommission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.ReferralCommission{}).Where("referral_code_id = ?", referralCodeID)
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "counting commissions")
	}

	var commissions []models.ReferralCommission
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&commissions).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "listing commissions")
	}
	return commissions, total, nil
}

// ListCommissionsByOwner returns ledger rows across every code an
// affiliator owns
func (s *ReferralService) ListCommissionsByOwner(ctx context.Context, ownerID uuid.UUID, filter CommissionFilter, page, pageSize int) ([]models.ReferralCommission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.ReferralCommission{}).
		Joins("JOIN referral_codes ON referral_codes.id = referral_commissions.referral_code_id").
		Where("referral_codes.owner_id = ?", ownerID)
	if filter.From != nil {
		query = query.Where("referral_commissions.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("referral_commissions.created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "counting commissions")
	}

	var commissions []models.ReferralCommission
	err := query.Order("referral_commissions.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&commissions).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "listing commissions")
	}
	return commissions, total, nil
}

// lockForUpdate takes a row lock on dialects that support one. sqlite
// has no FOR UPDATE grammar and serializes writes on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// RequestCommissionPayment opens a withdrawal request for a referral
// code the requester owns. The balance check and the insert share one
// transaction so two concurrent requests cannot both pass a check only
// one should satisfy.
func (s *ReferralService) RequestCommissionPayment(ctx context.Context, referralCodeID string, ownerID uuid.UUID, amount float64) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var code models.ReferralCode
		err := lockForUpdate(tx).First(&code, "id = ?", referralCodeID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "referral code not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "finding referral code")
		}
		if code.OwnerID != ownerID {
			return apperrors.New(apperrors.KindNotFound, "referral code not found")
		}

		balance, err := availableBalance(tx, referralCodeID)
		if err != nil {
			return err
		}
		if amount > balance {
			return apperrors.New(apperrors.KindInsufficientBalance,
				"requested %.2f exceeds available balance %.2f", amount, balance)
		}

		payment = models.CommissionPayment{
			ReferralCodeID: referralCodeID,
			Amount:         amount,
			Status:         models.CommissionPaymentStatusPending,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating withdrawal request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateCommissionPaymentInput is the admin review decision
type UpdateCommissionPaymentInput struct {
	Status        models.CommissionPaymentStatus `json:"status"`
	Notes         string                         `json:"notes,omitempty"`
	TransactionID string                         `json:"transaction_id,omitempty"`
}

// UpdateCommissionPaymentStatus applies an admin decision to a
// withdrawal request. Transitioning to paid stamps paid_at and stores
// the payout reference; any other target clears both, so they always
// describe the most recent paid transition.
func (s *ReferralService) UpdateCommissionPaymentStatus(ctx context.Context, id uuid.UUID, input UpdateCommissionPaymentInput) (*models.CommissionPayment, error) {
	if !input.Status.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidStatus, "unknown withdrawal status %q", input.Status)
	}

	var payment models.CommissionPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "commission payment not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "finding commission payment")
		}

		payment.Status = input.Status
		if input.Notes != "" {
			payment.Notes = input.Notes
		}
		if input.Status == models.CommissionPaymentStatusPaid {
			now := s.now()
			payment.PaidAt = &now
			if input.TransactionID != "" {
				payment.TransactionID = input.TransactionID
			}
		} else {
			// The payout reference only exists while the request is paid.
			payment.PaidAt = nil
			payment.TransactionID = ""
		}

		// Save with Select so the nil paid_at is written back.
		if err := tx.Model(&payment).
			Select("status", "notes", "transaction_id", "paid_at").
			Updates(map[string]interface{}{
				"status":         payment.Status,
				"notes":          payment.Notes,
				"transaction_id": payment.TransactionID,
				"paid_at":        payment.PaidAt,
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "updating commission payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListCommissionPayments returns a page of withdrawal requests for a
// referral code
func (s *ReferralService) ListCommissionPayments(ctx context.Context, referralCodeID string, page, pageSize int) ([]models.CommissionPayment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.CommissionPayment{}).Where("referral_code_id = ?", referralCodeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "counting withdrawal requests")
	}

	var payments []models.CommissionPayment
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&payments).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "listing withdrawal requests")
	}
	return payments, total, nil
}
