// Package booking implements booking creation and lifecycle management.
// Creation runs as a single storage transaction: the booking, its
// participant rows, its payment row and (when a referral was applied)
// one commission ledger row commit together or not at all.
package booking

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
	"gorm.io/gorm/clause"
)

// BookingService handles booking operations
type BookingService struct {
	db     *gorm.DB
	txOpts []*sql.TxOptions
	now    func() time.Time
}

// Option configures a BookingService
type Option func(*BookingService)

// WithSerializableTransactions makes booking creation run under
// serializable isolation. The capacity re-check and the insert race
// against concurrent creations for the last seat; weaker isolation can
// let both pass.
func WithSerializableTransactions() Option {
	return func(s *BookingService) {
		s.txOpts = []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) {
		s.now = now
	}
}

// NewBookingService creates a new booking service
func NewBookingService(db *gorm.DB, opts ...Option) *BookingService {
	s := &BookingService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBookingInput is the mentee-supplied booking request
type CreateBookingInput struct {
	MentoringServiceID uuid.UUID   `json:"mentoring_service_id"`
	ReferralUsageID    *uuid.UUID  `json:"referral_usage_id,omitempty"`
	SpecialRequests    string      `json:"special_requests,omitempty"`
	BookingDate        string      `json:"booking_date,omitempty"`
	ParticipantIDs     []uuid.UUID `json:"participant_ids,omitempty"`
}

// CreateBookingResult carries the created booking plus the price
// breakdown for display
type CreateBookingResult struct {
	Booking       *models.Booking `json:"booking"`
	OriginalPrice float64         `json:"original_price"`
	FinalPrice    float64         `json:"final_price"`
}

var bookingDateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseBookingDate(raw string) (time.Time, error) {
	for _, layout := range bookingDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// CreateBooking validates the request and atomically creates the
// booking, its participants, its payment and, when a referral usage is
// supplied, the commission ledger row. Any failure rolls the whole
// attempt back.
func (s *BookingService) CreateBooking(ctx context.Context, menteeID uuid.UUID, input CreateBookingInput) (*CreateBookingResult, error) {
	var service models.MentoringService
	if err := s.db.WithContext(ctx).First(&service, "id = ?", input.MentoringServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "mentoring service not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding mentoring service")
	}
	if !service.IsActive {
		return nil, apperrors.New(apperrors.KindInactive, "mentoring service is not active")
	}
	if !service.ServiceType.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidServiceType, "unknown service type %q", service.ServiceType)
	}

	if len(input.ParticipantIDs) > 0 && service.ServiceType != models.ServiceTypeGroup {
		return nil, apperrors.New(apperrors.KindInvalidParticipants, "participants are only allowed for group services")
	}
	if service.ServiceType == models.ServiceTypeGroup && 1+len(input.ParticipantIDs) > service.MaxParticipants {
		return nil, apperrors.New(apperrors.KindCapacityExceeded,
			"participant count %d exceeds the service capacity of %d", 1+len(input.ParticipantIDs), service.MaxParticipants)
	}

	// Shared-seat types are also checked here so obviously-full services
	// fail fast; the authoritative re-check happens inside the transaction.
	if service.ServiceType.GroupDelivery() {
		if err := s.checkSeatCapacity(s.db.WithContext(ctx), &service); err != nil {
			return nil, err
		}
	}

	seen := make(map[uuid.UUID]bool, len(input.ParticipantIDs))
	for _, id := range input.ParticipantIDs {
		if seen[id] {
			return nil, apperrors.New(apperrors.KindDuplicateParticipant, "duplicate participant %s", id)
		}
		seen[id] = true
	}

	userIDs := append([]uuid.UUID{menteeID}, input.ParticipantIDs...)
	var userCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", userIDs).Count(&userCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "checking users")
	}
	if userCount != int64(len(userIDs)) {
		return nil, apperrors.New(apperrors.KindInvalidUser, "one or more users do not exist")
	}

	var referralCode *models.ReferralCode
	if input.ReferralUsageID != nil {
		_, code, err := s.loadUnconsumedReferral(s.db.WithContext(ctx), *input.ReferralUsageID)
		if err != nil {
			return nil, err
		}
		referralCode = code
	}

	bookingDate := s.now()
	if service.ServiceType.Manual() {
		if input.BookingDate == "" {
			return nil, apperrors.New(apperrors.KindMissingDate, "booking date is required for %s services", service.ServiceType)
		}
		parsed, err := parseBookingDate(input.BookingDate)
		if err != nil {
			return nil, apperrors.New(apperrors.KindInvalidDate, "booking date %q could not be parsed", input.BookingDate)
		}
		bookingDate = parsed
	}

	originalPrice := service.Price
	finalPrice := originalPrice
	commission := 0.0
	if referralCode != nil {
		finalPrice = originalPrice * (1 - referralCode.DiscountPercentage/100)
		commission = finalPrice * referralCode.CommissionPercentage / 100
	}

	bookingStatus := models.BookingStatusPending
	menteePaymentStatus := models.PaymentStatusPending
	if service.ServiceType.Manual() {
		bookingStatus = models.BookingStatusConfirmed
		menteePaymentStatus = models.PaymentStatusConfirmed
	}

	var bookingID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Authoritative capacity re-check: two concurrent creations must
		// not both claim the last shared seat.
		if service.ServiceType.GroupDelivery() {
			if err := s.checkSeatCapacity(lockForUpdate(tx), &service); err != nil {
				return err
			}
		}

		// Referral consumption is re-checked here too; the unique index
		// on bookings.referral_usage_id is the storage backstop.
		if input.ReferralUsageID != nil {
			if _, _, err := s.loadUnconsumedReferral(tx, *input.ReferralUsageID); err != nil {
				return err
			}
		}

		id, err := utils.GenerateUniqueID(
			func() string { return utils.BookingID(string(service.ServiceType)) },
			func(candidate string) (bool, error) {
				var n int64
				if err := tx.Model(&models.Booking{}).Where("id = ?", candidate).Count(&n).Error; err != nil {
					return false, err
				}
				return n > 0, nil
			},
		)
		if err != nil {
			return err
		}
		bookingID = id

		booking := models.Booking{
			ID:                 bookingID,
			MenteeID:           menteeID,
			MentoringServiceID: service.ID,
			ReferralUsageID:    input.ReferralUsageID,
			SpecialRequests:    input.SpecialRequests,
			BookingDate:        bookingDate,
			Status:             bookingStatus,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating booking")
		}

		participants := []models.BookingParticipant{{
			BookingID:     bookingID,
			UserID:        menteeID,
			IsLeader:      true,
			PaymentStatus: menteePaymentStatus,
		}}
		for _, participantID := range input.ParticipantIDs {
			participants = append(participants, models.BookingParticipant{
				BookingID:     bookingID,
				UserID:        participantID,
				IsLeader:      false,
				PaymentStatus: models.PaymentStatusConfirmed,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "creating booking participants")
		}

		paymentID, err := utils.GenerateUniqueID(
			func() string { return utils.BookingPaymentID(s.now()) },
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
			ID:        paymentID,
			BookingID: &bookingID,
			Amount:    finalPrice,
			Status:    menteePaymentStatus,
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

	created, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &CreateBookingResult{
		Booking:       created,
		OriginalPrice: originalPrice,
		FinalPrice:    finalPrice,
	}, nil
}

// lockForUpdate takes a row lock on dialects that support one. sqlite
// has no FOR UPDATE grammar and serializes writes on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// checkSeatCapacity fails with CapacityExceeded when the active booking
// count (pending or confirmed) against a shared-seat service leaves no
// room for one more
func (s *BookingService) checkSeatCapacity(tx *gorm.DB, service *models.MentoringService) error {
	var active int64
	err := tx.Model(&models.Booking{}).
		Where("mentoring_service_id = ? AND status IN ?", service.ID,
			[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Count(&active).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "counting active bookings")
	}
	if active+1 > int64(service.MaxParticipants) {
		return apperrors.New(apperrors.KindCapacityExceeded, "service %s is fully booked", service.ID)
	}
	return nil
}

// loadUnconsumedReferral loads a referral usage and its code, failing
// when the usage is absent or already linked to a booking or practice
// purchase
func (s *BookingService) loadUnconsumedReferral(tx *gorm.DB, usageID uuid.UUID) (*models.ReferralUsage, *models.ReferralCode, error) {
	var usage models.ReferralUsage
	if err := tx.First(&usage, "id = ?", usageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.New(apperrors.KindNotFound, "referral usage not found")
		}
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral usage")
	}
	if usage.Context != models.ReferralContextBooking {
		return nil, nil, apperrors.New(apperrors.KindAlreadyUsed, "referral usage was recorded for a different context")
	}

	var linked int64
	if err := tx.Model(&models.Booking{}).Where("referral_usage_id = ?", usageID).Count(&linked).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, err, "checking referral usage link")
	}
	if linked == 0 {
		if err := tx.Model(&models.PracticePurchase{}).Where("referral_usage_id = ?", usageID).Count(&linked).Error; err != nil {
			return nil, nil, apperrors.Wrap(apperrors.KindInternal, err, "checking referral usage link")
		}
	}
	if linked > 0 {
		return nil, nil, apperrors.New(apperrors.KindAlreadyUsed, "referral usage has already been consumed")
	}

	var code models.ReferralCode
	if err := tx.First(&code, "id = ?", usage.ReferralCodeID).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, err, "finding referral code")
	}
	return &usage, &code, nil
}

// GetBooking loads a booking with its participants and payment
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Participants").
		Preload("Payment").
		First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "booking not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding booking")
	}
	return &booking, nil
}

// ListFilter narrows admin booking listings
type ListFilter struct {
	Status             models.BookingStatus
	MentoringServiceID *uuid.UUID
	MenteeID           *uuid.UUID
	From               *time.Time
	To                 *time.Time
}

// ListBookings returns a page of bookings plus the unpaginated total
func (s *BookingService) ListBookings(ctx context.Context, filter ListFilter, page, pageSize int) ([]models.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Booking{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MentoringServiceID != nil {
		query = query.Where("mentoring_service_id = ?", *filter.MentoringServiceID)
	}
	if filter.MenteeID != nil {
		query = query.Where("mentee_id = ?", *filter.MenteeID)
	}
	if filter.From != nil {
		query = query.Where("booking_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("booking_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "counting bookings")
	}

	var bookings []models.Booking
	err := query.Preload("Participants").Preload("Payment").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindInternal, err, "listing bookings")
	}
	return bookings, total, nil
}
