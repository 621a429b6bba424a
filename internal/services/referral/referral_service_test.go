package referral

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
		&models.ReferralCode{},
		&models.ReferralUsage{},
		&models.Booking{},
		&models.PracticePurchase{},
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

func createActiveCode(t *testing.T, db *gorm.DB, svc *ReferralService, owner *models.User) *models.ReferralCode {
	code, err := svc.CreateReferralCode(context.Background(), owner.ID, CreateReferralCodeInput{
		DiscountPercentage:   10,
		CommissionPercentage: 5,
		ExpiryDate:           time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return code
}

func TestCreateReferralCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)

	code, err := svc.CreateReferralCode(context.Background(), owner.ID, CreateReferralCodeInput{
		Code:                 "WELCOME10",
		DiscountPercentage:   10,
		CommissionPercentage: 5,
		ExpiryDate:           time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Regexp(t, `^REF-\d{8}-[0-9A-Za-z]{4}$`, code.ID)
	assert.Equal(t, "WELCOME10", code.Code)
	assert.True(t, code.IsActive)
}

func TestCreateReferralCodeGeneratesCodeString(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)

	code := createActiveCode(t, db, svc, owner)
	assert.Len(t, code.Code, 8)
}

func TestCreateReferralCodeRequiresAffiliator(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	mentee := createTestUser(t, db, models.RoleMentee)

	_, err := svc.CreateReferralCode(context.Background(), mentee.ID, CreateReferralCodeInput{
		DiscountPercentage:   10,
		CommissionPercentage: 5,
		ExpiryDate:           time.Now().Add(24 * time.Hour),
	})
	assert.Equal(t, apperrors.KindInvalidUser, apperrors.KindOf(err))
}

func TestApplyReferralCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	mentee := createTestUser(t, db, models.RoleMentee)
	code := createActiveCode(t, db, svc, owner)

	result, err := svc.ApplyReferralCode(context.Background(), mentee.ID, code.Code, models.ReferralContextBooking)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ReferralUsageID)
	assert.Equal(t, 10.0, result.DiscountPercentage)
}

func TestApplyReferralCodeOncePerUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	mentee := createTestUser(t, db, models.RoleMentee)
	code := createActiveCode(t, db, svc, owner)

	_, err := svc.ApplyReferralCode(context.Background(), mentee.ID, code.Code, models.ReferralContextBooking)
	require.NoError(t, err)

	_, err = svc.ApplyReferralCode(context.Background(), mentee.ID, code.Code, models.ReferralContextBooking)
	assert.Equal(t, apperrors.KindAlreadyUsed, apperrors.KindOf(err))

	// A different user can still redeem the same code.
	other := createTestUser(t, db, models.RoleMentee)
	_, err = svc.ApplyReferralCode(context.Background(), other.ID, code.Code, models.ReferralContextBooking)
	assert.NoError(t, err)
}

func TestApplyReferralCodeInactiveOrExpired(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	mentee := createTestUser(t, db, models.RoleMentee)

	code := createActiveCode(t, db, svc, owner)
	require.NoError(t, db.Model(&models.ReferralCode{}).Where("id = ?", code.ID).Update("is_active", false).Error)
	_, err := svc.ApplyReferralCode(context.Background(), mentee.ID, code.Code, models.ReferralContextBooking)
	assert.Equal(t, apperrors.KindInactive, apperrors.KindOf(err))

	expired, err := svc.CreateReferralCode(context.Background(), owner.ID, CreateReferralCodeInput{
		DiscountPercentage:   10,
		CommissionPercentage: 5,
		ExpiryDate:           time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.ApplyReferralCode(context.Background(), mentee.ID, expired.Code, models.ReferralContextBooking)
	assert.Equal(t, apperrors.KindInactive, apperrors.KindOf(err))

	_, err = svc.ApplyReferralCode(context.Background(), mentee.ID, "NOSUCHCODE", models.ReferralContextBooking)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func addCommission(t *testing.T, db *gorm.DB, codeID string, amount float64) {
	require.NoError(t, db.Create(&models.ReferralCommission{
		ReferralCodeID: codeID,
		TransactionID:  "PAY-BKG-20260101-" + uuid.New().String()[:10],
		Amount:         amount,
	}).Error)
}

func TestAvailableBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)

	balance, err := svc.AvailableBalance(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	addCommission(t, db, code.ID, 50000)
	addCommission(t, db, code.ID, 25000)

	balance, err = svc.AvailableBalance(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 75000.0, balance)
}

func TestRequestCommissionPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)
	addCommission(t, db, code.ID, 100000)

	payment, err := svc.RequestCommissionPayment(context.Background(), code.ID, owner.ID, 60000)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPaymentStatusPending, payment.Status)
	assert.Equal(t, 60000.0, payment.Amount)

	// The pending request encumbers the balance.
	balance, err := svc.AvailableBalance(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 40000.0, balance)

	_, err = svc.RequestCommissionPayment(context.Background(), code.ID, owner.ID, 50000)
	assert.Equal(t, apperrors.KindInsufficientBalance, apperrors.KindOf(err))
}

func TestRequestCommissionPaymentOwnershipScoped(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	stranger := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)
	addCommission(t, db, code.ID, 100000)

	_, err := svc.RequestCommissionPayment(context.Background(), code.ID, stranger.ID, 10000)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateCommissionPaymentStatus(t *testing.T) {
	db := setupTestDB(t)
	fixed := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	svc := NewReferralService(db, WithClock(func() time.Time { return fixed }))
	owner := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)
	addCommission(t, db, code.ID, 100000)

	payment, err := svc.RequestCommissionPayment(context.Background(), code.ID, owner.ID, 100000)
	require.NoError(t, err)

	_, err = svc.UpdateCommissionPaymentStatus(context.Background(), payment.ID, UpdateCommissionPaymentInput{
		Status: "nonsense",
	})
	assert.Equal(t, apperrors.KindInvalidStatus, apperrors.KindOf(err))

	paid, err := svc.UpdateCommissionPaymentStatus(context.Background(), payment.ID, UpdateCommissionPaymentInput{
		Status:        models.CommissionPaymentStatusPaid,
		TransactionID: "bank-ref-123",
		Notes:         "settled via transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPaymentStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, fixed, paid.PaidAt.UTC())
	assert.Equal(t, "bank-ref-123", paid.TransactionID)

	// Moving away from paid clears the timestamp and the payout reference.
	failed, err := svc.UpdateCommissionPaymentStatus(context.Background(), payment.ID, UpdateCommissionPaymentInput{
		Status: models.CommissionPaymentStatusFailed,
	})
	require.NoError(t, err)
	assert.Nil(t, failed.PaidAt)
	assert.Empty(t, failed.TransactionID)

	var stored models.CommissionPayment
	require.NoError(t, db.First(&stored, "id = ?", payment.ID).Error)
	assert.Nil(t, stored.PaidAt)
	assert.Empty(t, stored.TransactionID)
}

func TestFailedWithdrawalReleasesBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)
	addCommission(t, db, code.ID, 100000)

	payment, err := svc.RequestCommissionPayment(context.Background(), code.ID, owner.ID, 100000)
	require.NoError(t, err)

	_, err = svc.UpdateCommissionPaymentStatus(context.Background(), payment.ID, UpdateCommissionPaymentInput{
		Status: models.CommissionPaymentStatusFailed,
	})
	require.NoError(t, err)

	balance, err := svc.AvailableBalance(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, balance)
}

func TestListCommissions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)
	owner := createTestUser(t, db, models.RoleAffiliator)
	code := createActiveCode(t, db, svc, owner)
	addCommission(t, db, code.ID, 10000)
	addCommission(t, db, code.ID, 20000)

	commissions, total, err := svc.ListCommissions(context.Background(), code.ID, CommissionFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, commissions, 2)

	byOwner, total, err := svc.ListCommissionsByOwner(context.Background(), owner.ID, CommissionFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byOwner, 2)
}
