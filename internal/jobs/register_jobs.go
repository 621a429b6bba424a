package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mentorlink/backend/internal/queue"
	"github.com/mentorlink/backend/internal/services/booking"
	"gorm.io/gorm"
)

// RegisterAllJobHandlers wires every job handler onto the queue and
// returns the notification job so lifecycle code can enqueue events
func RegisterAllJobHandlers(q *queue.Queue, db *gorm.DB) *BookingNotificationJob {
	return NewBookingNotificationJob(db, q)
}

// ScheduleRecurringJobs registers the periodic sweeps on the scheduler
func ScheduleRecurringJobs(
	scheduler *gocron.Scheduler,
	bookingSvc *booking.BookingService,
	notification *BookingNotificationJob,
	bookingTTL time.Duration,
) error {
	expiryJob := NewBookingExpiryJob(bookingSvc, notification, bookingTTL)
	return expiryJob.Schedule(scheduler)
}
