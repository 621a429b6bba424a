package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/queue"
	"gorm.io/gorm"
)

// BookingNotificationPayload describes a booking lifecycle event to be
// delivered to the mentee and mentor
type BookingNotificationPayload struct {
	BookingID string               `json:"booking_id"`
	Event     string               `json:"event"`
	Status    models.BookingStatus `json:"status"`
}

// Notification events
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
)

// BookingNotificationJob delivers booking lifecycle notifications
type BookingNotificationJob struct {
	db *gorm.DB
	q  *queue.Queue
}

// NewBookingNotificationJob creates the job and registers its handler
func NewBookingNotificationJob(db *gorm.DB, q *queue.Queue) *BookingNotificationJob {
	job := &BookingNotificationJob{db: db, q: q}
	q.RegisterHandler(queue.QueueBookingNotification, job.Handle)
	return job
}

// EnqueueEvent queues a notification for a booking lifecycle event
func (j *BookingNotificationJob) EnqueueEvent(ctx context.Context, bookingID, event string, status models.BookingStatus) error {
	_, err := j.q.Enqueue(ctx, queue.QueueBookingNotification, BookingNotificationPayload{
		BookingID: bookingID,
		Event:     event,
		Status:    status,
	})
	if err != nil {
		return fmt.Errorf("enqueueing booking notification: %w", err)
	}
	return nil
}

// Handle loads the booking's recipients and delivers the notification.
// Delivery is currently a structured log line; the job exists so a mail
// or push integration slots in without touching the lifecycle code.
func (j *BookingNotificationJob) Handle(ctx context.Context, job *queue.Job) error {
	var payload BookingNotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshaling notification payload: %w", err)
	}

	var booking models.Booking
	err := j.db.WithContext(ctx).
		Preload("Participants").
		First(&booking, "id = ?", payload.BookingID).Error
	if err != nil {
		return fmt.Errorf("loading booking %s for notification: %w", payload.BookingID, err)
	}

	log.Printf("notify %s: booking %s is %s (%d participants)",
		payload.Event, booking.ID, payload.Status, len(booking.Participants))
	return nil
}
