package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"gorm.io/gorm"
)

// UpdateBookingInput is the mentee-supplied booking edit. A nil
// ParticipantIDs leaves the roster untouched; a non-nil slice replaces
// it (group bookings only).
type UpdateBookingInput struct {
	SpecialRequests *string     `json:"special_requests,omitempty"`
	ParticipantIDs  []uuid.UUID `json:"participant_ids,omitempty"`
}

// loadOwnedBooking fetches a booking with its payment and service,
// scoped to the owning mentee
func (s *BookingService) loadOwnedBooking(tx *gorm.DB, menteeID uuid.UUID, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.Preload("Payment").Preload("MentoringService").
		First(&booking, "id = ? AND mentee_id = ?", bookingID, menteeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "booking not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding booking")
	}
	return &booking, nil
}

// menteeMutationAllowed enforces the shared guard for mentee edits and
// cancellation: the booking must still be pending and its payment must
// not have been confirmed
func menteeMutationAllowed(booking *models.Booking) error {
	if booking.Status != models.BookingStatusPending {
		return apperrors.New(apperrors.KindImmutable, "booking is %s and can no longer be changed", booking.Status)
	}
	if booking.Payment != nil && booking.Payment.Status == models.PaymentStatusConfirmed {
		return apperrors.New(apperrors.KindImmutable, "booking payment has been confirmed")
	}
	return nil
}

// UpdateBooking applies a mentee edit. Replacing a group booking's
// roster deletes every participant row and recreates [mentee as leader]
// plus the new participants, all reset to pending payment status.
func (s *BookingService) UpdateBooking(ctx context.Context, menteeID uuid.UUID, bookingID string, input UpdateBookingInput) (*models.Booking, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.loadOwnedBooking(tx, menteeID, bookingID)
		if err != nil {
			return err
		}
		if err := menteeMutationAllowed(booking); err != nil {
			return err
		}

		if input.SpecialRequests != nil {
			if err := tx.Model(booking).Update("special_requests", *input.SpecialRequests).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "updating booking")
			}
		}

		if input.ParticipantIDs == nil {
			return nil
		}
		if booking.MentoringService.ServiceType != models.ServiceTypeGroup {
			return apperrors.New(apperrors.KindInvalidParticipants, "participants can only be changed on group bookings")
		}
		if 1+len(input.ParticipantIDs) > booking.MentoringService.MaxParticipants {
			return apperrors.New(apperrors.KindCapacityExceeded,
				"participant count %d exceeds the service capacity of %d",
				1+len(input.ParticipantIDs), booking.MentoringService.MaxParticipants)
		}

		seen := map[uuid.UUID]bool{menteeID: true}
		for _, id := range input.ParticipantIDs {
			if seen[id] {
				return apperrors.New(apperrors.KindDuplicateParticipant, "duplicate participant %s", id)
			}
			seen[id] = true
		}

		userIDs := append([]uuid.UUID{menteeID}, input.ParticipantIDs...)
		var userCount int64
		if err := tx.Model(&models.User{}).Where("id IN ?", userIDs).Count(&userCount).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "checking users")
		}
		if userCount != int64(len(userIDs)) {
			return apperrors.New(apperrors.KindInvalidUser, "one or more users do not exist")
		}

		if err := tx.Where("booking_id = ?", bookingID).Delete(&models.BookingParticipant{}).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "removing participants")
		}

		participants := []models.BookingParticipant{{
			BookingID:     bookingID,
			UserID:        menteeID,
			IsLeader:      true,
			PaymentStatus: models.PaymentStatusPending,
		}}
		for _, participantID := range input.ParticipantIDs {
			participants = append(participants, models.BookingParticipant{
				BookingID:     bookingID,
				UserID:        participantID,
				PaymentStatus: models.PaymentStatusPending,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "recreating participants")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, bookingID)
}

// CancelBooking cancels a pending booking and fails every participant's
// payment status. A second cancel fails the pending guard rather than
// being a no-op.
func (s *BookingService) CancelBooking(ctx context.Context, menteeID uuid.UUID, bookingID string) (*models.Booking, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.loadOwnedBooking(tx, menteeID, bookingID)
		if err != nil {
			return err
		}
		if err := menteeMutationAllowed(booking); err != nil {
			return err
		}

		if err := tx.Model(booking).Update("status", models.BookingStatusCancelled).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "cancelling booking")
		}
		if err := tx.Model(&models.BookingParticipant{}).
			Where("booking_id = ?", bookingID).
			Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "failing participant payments")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, bookingID)
}

// ExpireStalePending cancels pending shared-seat bookings whose payment
// is still pending after the hold window, releasing their seats. Manual
// bookings are committed at creation and are never swept.
func (s *BookingService) ExpireStalePending(ctx context.Context, olderThan time.Duration) ([]models.Booking, error) {
	cutoff := s.now().Add(-olderThan)

	var stale []models.Booking
	err := s.db.WithContext(ctx).
		Joins("JOIN mentoring_services ON mentoring_services.id = bookings.mentoring_service_id").
		Joins("JOIN payments ON payments.booking_id = bookings.id").
		Where("bookings.status = ?", models.BookingStatusPending).
		Where("payments.status = ?", models.PaymentStatusPending).
		Where("mentoring_services.service_type IN ?",
			[]models.ServiceType{models.ServiceTypeBootcamp, models.ServiceTypeShortClass, models.ServiceTypeLiveClass}).
		Where("bookings.created_at < ?", cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding stale bookings")
	}

	expired := make([]models.Booking, 0, len(stale))
	for _, b := range stale {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", b.ID, models.BookingStatusPending).
				Update("status", models.BookingStatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Raced with a confirmation; leave it alone.
				return nil
			}
			if err := tx.Model(&models.BookingParticipant{}).
				Where("booking_id = ?", b.ID).
				Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
				return err
			}
			b.Status = models.BookingStatusCancelled
			expired = append(expired, b)
			return nil
		})
		if err != nil {
			return expired, apperrors.Wrap(apperrors.KindInternal, err, "expiring booking %s", b.ID)
		}
	}
	return expired, nil
}

// AdminUpdateStatus sets a booking status explicitly. Cancelling fails
// every participant's payment status; confirming a non-cohort service
// confirms them.
func (s *BookingService) AdminUpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidStatus, "unknown booking status %q", status)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		err := tx.Preload("MentoringService").First(&booking, "id = ?", bookingID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "booking not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "finding booking")
		}

		if err := tx.Model(&booking).Update("status", status).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "updating booking status")
		}

		switch {
		case status == models.BookingStatusCancelled:
			if err := tx.Model(&models.BookingParticipant{}).
				Where("booking_id = ?", bookingID).
				Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "failing participant payments")
			}
		case status == models.BookingStatusConfirmed && !booking.MentoringService.ServiceType.GroupDelivery():
			if err := tx.Model(&models.BookingParticipant{}).
				Where("booking_id = ?", bookingID).
				Update("payment_status", models.PaymentStatusConfirmed).Error; err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "confirming participant payments")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, bookingID)
}
