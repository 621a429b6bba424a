package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gosimple/slug"
	"github.com/mentorlink/backend/internal/apperrors"
)

// MaxGenerateAttempts is the ceiling on collision retries before an id
// generation is surfaced as exhausted
const MaxGenerateAttempts = 10

const (
	digitCharset = "0123456789"
	alnumCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomString(charset string, n int) string {
	result := make([]byte, n)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

// RandomDigits returns n random decimal digits
func RandomDigits(n int) string {
	return randomString(digitCharset, n)
}

// RandomAlnum returns n random uppercase alphanumeric characters
func RandomAlnum(n int) string {
	return randomString(alnumCharset, n)
}

// BookingID builds a candidate booking id: Booking-<service-type-slug>-<10 digits>
func BookingID(serviceType string) string {
	return fmt.Sprintf("Booking-%s-%s", slug.Make(serviceType), RandomDigits(10))
}

// BookingPaymentID builds a candidate payment id for a booking:
// PAY-BKG-<yyyyMMdd>-<10 digits>
func BookingPaymentID(now time.Time) string {
	return fmt.Sprintf("PAY-BKG-%s-%s", now.Format("20060102"), RandomDigits(10))
}

// PurchasePaymentID builds a candidate payment id for a practice
// purchase: PAY-PRC-<yyyyMMdd>-<10 digits>
func PurchasePaymentID(now time.Time) string {
	return fmt.Sprintf("PAY-PRC-%s-%s", now.Format("20060102"), RandomDigits(10))
}

// ReferralCodeID builds a candidate referral code id: REF-<yyyyMMdd>-<4 alnum>
func ReferralCodeID(now time.Time) string {
	return fmt.Sprintf("REF-%s-%s", now.Format("20060102"), RandomAlnum(4))
}

// GenerateUniqueID produces a fresh id by generating candidates and
// probing storage for collisions, retrying up to MaxGenerateAttempts.
// There is no reservation: the caller must insert within the same
// logical operation and treat a unique-constraint violation at insert
// time as the final backstop.
func GenerateUniqueID(gen func() string, exists func(id string) (bool, error)) (string, error) {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		candidate := gen()
		taken, err := exists(candidate)
		if err != nil {
			return "", apperrors.Wrap(apperrors.KindInternal, err, "probing id %q", candidate)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.New(apperrors.KindGenerationExhausted, "could not generate a unique id after %d attempts", MaxGenerateAttempts)
}
