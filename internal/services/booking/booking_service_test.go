package booking

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils/tests"
)

// setupTestDB creates an in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.MentoringService{},
		&models.MentoringSession{},
		&models.SessionUpdateLog{},
		&models.Practice{},
		&models.ReferralCode{},
		&models.ReferralUsage{},
		&models.Booking{},
		&models.BookingParticipant{},
		&models.PracticePurchase{},
		&models.Payment{},
		&models.ReferralCommission{},
		&models.CommissionPayment{},
	)
	require.NoError(t, err)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	user := &models.User{
		FullName: "Test User",
		Email:    uuid.New().String() + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestService(t *testing.T, db *gorm.DB, serviceType models.ServiceType, price float64, maxParticipants int) *models.MentoringService {
	mentor := createTestUser(t, db, models.RoleMentor)
	service := &models.MentoringService{
		MentorID:        mentor.ID,
		Name:            "Test Service",
		Price:           price,
		ServiceType:     serviceType,
		MaxParticipants: maxParticipants,
		IsActive:        true,
	}
	require.NoError(t, db.Create(service).Error)
	return service
}

func createTestReferral(t *testing.T, db *gorm.DB, userID uuid.UUID, discount, commission float64) (*models.ReferralCode, *models.ReferralUsage) {
	affiliator := createTestUser(t, db, models.RoleAffiliator)
	code := &models.ReferralCode{
		ID:                   "REF-20260101-" + uuid.New().String()[:4],
		OwnerID:              affiliator.ID,
		Code:                 uuid.New().String()[:8],
		DiscountPercentage:   discount,
		CommissionPercentage: commission,
		ExpiryDate:           time.Now().Add(30 * 24 * time.Hour),
		IsActive:             true,
	}
	require.NoError(t, db.Create(code).Error)

	usage := &models.ReferralUsage{
		UserID:         userID,
		ReferralCodeID: code.ID,
		Context:        models.ReferralContextBooking,
		UsedAt:         time.Now(),
	}
	require.NoError(t, db.Create(usage).Error)
	return code, usage
}

func TestCreateBookingOneOnOne(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 500000, 1)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15 10:00",
		SpecialRequests:    "please focus on system design",
	})
	require.NoError(t, err)

	booking := result.Booking
	assert.Regexp(t, `^Booking-one-on-one-\d{10}$`, booking.ID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 500000.0, result.OriginalPrice)
	assert.Equal(t, 500000.0, result.FinalPrice)

	require.Len(t, booking.Participants, 1)
	assert.True(t, booking.Participants[0].IsLeader)
	assert.Equal(t, mentee.ID, booking.Participants[0].UserID)
	assert.Equal(t, models.PaymentStatusConfirmed, booking.Participants[0].PaymentStatus)

	require.NotNil(t, booking.Payment)
	assert.Regexp(t, `^PAY-BKG-\d{8}-\d{10}$`, booking.Payment.ID)
	assert.Equal(t, models.PaymentStatusConfirmed, booking.Payment.Status)
	assert.Equal(t, 500000.0, booking.Payment.Amount)
}

func TestCreateBookingGroupWithParticipants(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	friend1 := createTestUser(t, db, models.RoleMentee)
	friend2 := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeGroup, 900000, 5)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-20",
		ParticipantIDs:     []uuid.UUID{friend1.ID, friend2.ID},
	})
	require.NoError(t, err)

	booking := result.Booking
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	require.Len(t, booking.Participants, 3)

	leaders := 0
	for _, p := range booking.Participants {
		if p.IsLeader {
			leaders++
			assert.Equal(t, mentee.ID, p.UserID)
		}
		assert.Equal(t, models.PaymentStatusConfirmed, p.PaymentStatus)
	}
	assert.Equal(t, 1, leaders)
}

func TestCreateBookingParticipantsRejectedForNonGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	friend := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 100000, 1)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ParticipantIDs:     []uuid.UUID{friend.ID},
	})
	assert.Equal(t, apperrors.KindInvalidParticipants, apperrors.KindOf(err))
}

func TestCreateBookingDuplicateParticipant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	friend := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeGroup, 100000, 5)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ParticipantIDs:     []uuid.UUID{friend.ID, friend.ID},
	})
	assert.Equal(t, apperrors.KindDuplicateParticipant, apperrors.KindOf(err))
}

func TestCreateBookingUnknownParticipant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeGroup, 100000, 5)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ParticipantIDs:     []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, apperrors.KindInvalidUser, apperrors.KindOf(err))
}

func TestCreateBookingInactiveService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 100000, 1)
	require.NoError(t, db.Model(service).Update("is_active", false).Error)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
	})
	assert.Equal(t, apperrors.KindInactive, apperrors.KindOf(err))
}

func TestCreateBookingMissingDateForManualType(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 100000, 1)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	assert.Equal(t, apperrors.KindMissingDate, apperrors.KindOf(err))

	_, err = svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "next tuesday",
	})
	assert.Equal(t, apperrors.KindInvalidDate, apperrors.KindOf(err))
}

func TestCreateBookingBootcampDefaultsDateAndStaysPending(t *testing.T) {
	db := setupTestDB(t)
	fixed := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := NewBookingService(db, WithClock(func() time.Time { return fixed }))
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 2000000, 30)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, result.Booking.Status)
	assert.Equal(t, fixed, result.Booking.BookingDate.UTC())
	assert.Equal(t, models.PaymentStatusPending, result.Booking.Payment.Status)
}

func TestCreateBookingCapacityExceeded(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 2000000, 2)

	for i := 0; i < 2; i++ {
		mentee := createTestUser(t, db, models.RoleMentee)
		_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
			MentoringServiceID: service.ID,
		})
		require.NoError(t, err)
	}

	late := createTestUser(t, db, models.RoleMentee)
	_, err := svc.CreateBooking(context.Background(), late.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	assert.Equal(t, apperrors.KindCapacityExceeded, apperrors.KindOf(err))
}

func TestCreateBookingCancelledSeatsAreFreed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 2000000, 1)

	first := createTestUser(t, db, models.RoleMentee)
	result, err := svc.CreateBooking(context.Background(), first.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), first.ID, result.Booking.ID)
	require.NoError(t, err)

	second := createTestUser(t, db, models.RoleMentee)
	_, err = svc.CreateBooking(context.Background(), second.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	assert.NoError(t, err)
}

func TestCreateBookingWithReferral(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 1000000, 1)
	code, usage := createTestReferral(t, db, mentee.ID, 10, 5)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ReferralUsageID:    &usage.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 1000000.0, result.OriginalPrice)
	assert.Equal(t, 900000.0, result.FinalPrice)
	assert.Equal(t, 900000.0, result.Booking.Payment.Amount)

	var ledger models.ReferralCommission
	require.NoError(t, db.First(&ledger, "referral_code_id = ?", code.ID).Error)
	assert.Equal(t, 45000.0, ledger.Amount)
	assert.Equal(t, result.Booking.Payment.ID, ledger.TransactionID)
}

func TestCreateBookingReferralSingleUse(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 1000000, 1)
	_, usage := createTestReferral(t, db, mentee.ID, 10, 5)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ReferralUsageID:    &usage.ID,
	})
	require.NoError(t, err)

	_, err = svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-16",
		ReferralUsageID:    &usage.ID,
	})
	assert.Equal(t, apperrors.KindAlreadyUsed, apperrors.KindOf(err))
}

func TestCreateBookingRejectsPurchaseContextReferral(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 1000000, 1)
	_, usage := createTestReferral(t, db, mentee.ID, 10, 5)
	require.NoError(t, db.Model(usage).Update("context", models.ReferralContextPracticePurchase).Error)

	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ReferralUsageID:    &usage.ID,
	})
	assert.Equal(t, apperrors.KindAlreadyUsed, apperrors.KindOf(err))
}

func TestCreateBookingFailureLeavesNoRows(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeGroup, 100000, 5)

	// Unknown participant fails validation after the service lookup.
	_, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ParticipantIDs:     []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)

	var bookings, participants, payments, commissions int64
	db.Model(&models.Booking{}).Count(&bookings)
	db.Model(&models.BookingParticipant{}).Count(&participants)
	db.Model(&models.Payment{}).Count(&payments)
	db.Model(&models.ReferralCommission{}).Count(&commissions)
	assert.Zero(t, bookings)
	assert.Zero(t, participants)
	assert.Zero(t, payments)
	assert.Zero(t, commissions)
}

func TestUpdateBookingSpecialRequests(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	newRequests := "vegetarian lunch please"
	updated, err := svc.UpdateBooking(context.Background(), mentee.ID, result.Booking.ID, UpdateBookingInput{
		SpecialRequests: &newRequests,
	})
	require.NoError(t, err)
	assert.Equal(t, newRequests, updated.SpecialRequests)
}

func TestUpdateBookingRejectedAfterPaymentConfirmed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("booking_id = ?", result.Booking.ID).
		Update("status", models.PaymentStatusConfirmed).Error)

	newRequests := "too late"
	_, err = svc.UpdateBooking(context.Background(), mentee.ID, result.Booking.ID, UpdateBookingInput{
		SpecialRequests: &newRequests,
	})
	assert.Equal(t, apperrors.KindImmutable, apperrors.KindOf(err))
}

func TestUpdateBookingReplacesRoster(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	friend1 := createTestUser(t, db, models.RoleMentee)
	friend2 := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeGroup, 100000, 5)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
		ParticipantIDs:     []uuid.UUID{friend1.ID},
	})
	require.NoError(t, err)
	// Manual group bookings confirm immediately; reset for the edit.
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", result.Booking.ID).
		Update("status", models.BookingStatusPending).Error)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("booking_id = ?", result.Booking.ID).
		Update("status", models.PaymentStatusPending).Error)

	updated, err := svc.UpdateBooking(context.Background(), mentee.ID, result.Booking.ID, UpdateBookingInput{
		ParticipantIDs: []uuid.UUID{friend2.ID},
	})
	require.NoError(t, err)

	require.Len(t, updated.Participants, 2)
	ids := map[uuid.UUID]bool{}
	for _, p := range updated.Participants {
		ids[p.UserID] = true
		assert.Equal(t, models.PaymentStatusPending, p.PaymentStatus)
	}
	assert.True(t, ids[mentee.ID])
	assert.True(t, ids[friend2.ID])
	assert.False(t, ids[friend1.ID])
}

func TestCancelBookingMarksParticipantsFailed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(context.Background(), mentee.ID, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	var participants []models.BookingParticipant
	require.NoError(t, db.Find(&participants, "booking_id = ?", result.Booking.ID).Error)
	for _, p := range participants {
		assert.Equal(t, models.PaymentStatusFailed, p.PaymentStatus)
	}

	// Cancelling twice fails the lifecycle guard.
	_, err = svc.CancelBooking(context.Background(), mentee.ID, result.Booking.ID)
	assert.Equal(t, apperrors.KindImmutable, apperrors.KindOf(err))
}

func TestCancelBookingWrongMentee(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	other := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), other.ID, result.Booking.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestAdminUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	_, err = svc.AdminUpdateStatus(context.Background(), result.Booking.ID, "nonsense")
	assert.Equal(t, apperrors.KindInvalidStatus, apperrors.KindOf(err))

	updated, err := svc.AdminUpdateStatus(context.Background(), result.Booking.ID, models.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, updated.Status)

	var participants []models.BookingParticipant
	require.NoError(t, db.Find(&participants, "booking_id = ?", result.Booking.ID).Error)
	for _, p := range participants {
		assert.Equal(t, models.PaymentStatusFailed, p.PaymentStatus)
	}
}

func TestAdminConfirmCascadesForManualTypes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeOneOnOne, 100000, 1)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
		BookingDate:        "2026-09-15",
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", result.Booking.ID).
		Update("status", models.BookingStatusPending).Error)
	require.NoError(t, db.Model(&models.BookingParticipant{}).
		Where("booking_id = ?", result.Booking.ID).
		Update("payment_status", models.PaymentStatusPending).Error)

	updated, err := svc.AdminUpdateStatus(context.Background(), result.Booking.ID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)

	var participants []models.BookingParticipant
	require.NoError(t, db.Find(&participants, "booking_id = ?", result.Booking.ID).Error)
	for _, p := range participants {
		assert.Equal(t, models.PaymentStatusConfirmed, p.PaymentStatus)
	}
}

func TestExpireStalePending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	result, err := svc.CreateBooking(context.Background(), mentee.ID, CreateBookingInput{
		MentoringServiceID: service.ID,
	})
	require.NoError(t, err)

	// Nothing is old enough yet.
	expired, err := svc.ExpireStalePending(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, expired)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", result.Booking.ID).
		Update("created_at", stale).Error)

	expired, err = svc.ExpireStalePending(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, result.Booking.ID, expired[0].ID)

	reloaded, err := svc.GetBooking(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, reloaded.Status)
}

func TestListBookingsFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	mentee := createTestUser(t, db, models.RoleMentee)
	other := createTestUser(t, db, models.RoleMentee)
	service := createTestService(t, db, models.ServiceTypeBootcamp, 100000, 10)

	for _, id := range []uuid.UUID{mentee.ID, other.ID} {
		_, err := svc.CreateBooking(context.Background(), id, CreateBookingInput{
			MentoringServiceID: service.ID,
		})
		require.NoError(t, err)
	}

	bookings, total, err := svc.ListBookings(context.Background(), ListFilter{MenteeID: &mentee.ID}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bookings, 1)
	assert.Equal(t, mentee.ID, bookings[0].MenteeID)

	_, total, err = svc.ListBookings(context.Background(), ListFilter{Status: models.BookingStatusPending}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestLockForUpdateDialects(t *testing.T) {
	db := setupTestDB(t)

	var bookings []models.Booking
	stmt := lockForUpdate(db.Session(&gorm.Session{DryRun: true})).Find(&bookings)
	assert.NotContains(t, stmt.Statement.SQL.String(), "FOR UPDATE")

	dummy, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)
	stmt = lockForUpdate(dummy).Find(&bookings)
	assert.Contains(t, stmt.Statement.SQL.String(), "FOR UPDATE")
}
