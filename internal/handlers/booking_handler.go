package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/jobs"
	"github.com/mentorlink/backend/internal/models"
	"github.com/mentorlink/backend/internal/services/booking"
)

// BookingHandler handles booking-related requests
type BookingHandler struct {
	bookingService *booking.BookingService
	notification   *jobs.BookingNotificationJob
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *booking.BookingService, notification *jobs.BookingNotificationJob) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		notification:   notification,
	}
}

// CreateBooking creates a booking for the authenticated mentee
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	menteeID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bookingService.CreateBooking(c.Request.Context(), menteeID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notification != nil {
		_ = h.notification.EnqueueEvent(c.Request.Context(), result.Booking.ID, jobs.EventBookingCreated, result.Booking.Status)
	}

	c.JSON(http.StatusCreated, result)
}

// GetBooking returns one booking with participants and payment
func (h *BookingHandler) GetBooking(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	result, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyBookings lists the authenticated mentee's bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	menteeID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, pageSize := pagination(c)
	filter := booking.ListFilter{
		MenteeID: &menteeID,
		Status:   models.BookingStatus(c.Query("status")),
	}

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": total, "page": page, "page_size": pageSize})
}

// UpdateBooking updates a pending booking's special requests or roster
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	menteeID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input booking.UpdateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bookingService.UpdateBooking(c.Request.Context(), menteeID, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelBooking cancels a pending booking
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	menteeID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.bookingService.CancelBooking(c.Request.Context(), menteeID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notification != nil {
		_ = h.notification.EnqueueEvent(c.Request.Context(), result.ID, jobs.EventBookingCancelled, result.Status)
	}

	c.JSON(http.StatusOK, result)
}

// AdminListBookings lists bookings with admin filters
func (h *BookingHandler) AdminListBookings(c *gin.Context) {
	page, pageSize := pagination(c)
	filter := booking.ListFilter{
		Status: models.BookingStatus(c.Query("status")),
	}
	if serviceIDStr := c.Query("mentoring_service_id"); serviceIDStr != "" {
		serviceID, err := uuid.Parse(serviceIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mentoring service ID"})
			return
		}
		filter.MentoringServiceID = &serviceID
	}
	if menteeIDStr := c.Query("mentee_id"); menteeIDStr != "" {
		menteeID, err := uuid.Parse(menteeIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mentee ID"})
			return
		}
		filter.MenteeID = &menteeID
	}
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		filter.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		filter.To = &to
	}

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": total, "page": page, "page_size": pageSize})
}

// AdminUpdateBookingStatus moves a booking to a new lifecycle status
func (h *BookingHandler) AdminUpdateBookingStatus(c *gin.Context) {
	var input struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bookingService.AdminUpdateStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notification != nil {
		event := jobs.EventBookingConfirmed
		if result.Status == models.BookingStatusCancelled {
			event = jobs.EventBookingCancelled
		}
		_ = h.notification.EnqueueEvent(c.Request.Context(), result.ID, event, result.Status)
	}

	c.JSON(http.StatusOK, result)
}
