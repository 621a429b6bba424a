package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/services/booking"
)

// BookingExpiryJob cancels shared-seat bookings whose payment never
// arrived, releasing their seats for other mentees
type BookingExpiryJob struct {
	bookingSvc   *booking.BookingService
	notification *BookingNotificationJob
	ttl          time.Duration
}

// NewBookingExpiryJob creates the expiry job. ttl is how long a pending
// booking may wait for payment before it is cancelled.
func NewBookingExpiryJob(bookingSvc *booking.BookingService, notification *BookingNotificationJob, ttl time.Duration) *BookingExpiryJob {
	return &BookingExpiryJob{
		bookingSvc:   bookingSvc,
		notification: notification,
		ttl:          ttl,
	}
}

// Run sweeps once and enqueues a notification per expired booking
func (j *BookingExpiryJob) Run(ctx context.Context) {
	expired, err := j.bookingSvc.ExpireStalePending(ctx, j.ttl)
	if err != nil {
		log.Printf("error expiring stale bookings: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	log.Printf("expired %d stale pending bookings", len(expired))
	for _, b := range expired {
		if err := j.notification.EnqueueEvent(ctx, b.ID, EventBookingExpired, models.BookingStatusCancelled); err != nil {
			log.Printf("error enqueueing expiry notification for %s: %v", b.ID, err)
		}
	}
}

// Schedule registers the hourly sweep on the scheduler
func (j *BookingExpiryJob) Schedule(scheduler *gocron.Scheduler) error {
	_, err := scheduler.Every(1).Hour().Do(func() {
		j.Run(context.Background())
	})
	return err
}
