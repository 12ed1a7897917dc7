package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// BookingManager is the part of the booking service the HTTP layer drives
type BookingManager interface {
	Create(ctx context.Context, renterID uuid.UUID, in services.CreateBookingInput) (*models.Booking, error)
	Accept(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error)
	Reject(ctx context.Context, bookingID, mateID uuid.UUID) error
	CompleteByMate(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error)
	RecordRating(ctx context.Context, bookingID, renterID uuid.UUID, value float64) (*models.MateProfile, error)
	InitiatePayment(ctx context.Context, bookingID, renterID uuid.UUID) (*models.CheckoutSession, error)
	Get(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, actor services.Actor, status *models.BookingStatus) ([]*models.Booking, error)
}

// BookingHandler handles booking lifecycle HTTP requests
type BookingHandler struct {
	bookings BookingManager
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingManager, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// CreateBooking handles POST /api/v1/bookings (renter only)
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	input, err := services.ParseCreateRequest(&req)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), userCtx.UserID, input)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, models.BookingResponse{
		Message: "Booking requested",
		Booking: booking,
	})
}

// ListBookings handles GET /api/v1/bookings?status=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseBookingStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   string(services.KindValidation),
				Message: "Unknown booking status",
				Code:    "INVALID_STATUS",
			})
			return
		}
		status = &parsed
	}

	bookings, err := h.bookings.List(c.Request.Context(), services.Actor{UserID: userCtx.UserID, Role: userCtx.Role}, status)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}

	c.JSON(http.StatusOK, models.BookingListResponse{Bookings: bookings})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), id, userCtx.UserID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.BookingResponse{Booking: booking})
}

// AcceptBooking handles POST /api/v1/bookings/:id/accept (mate only)
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	h.mateTransition(c, "Booking accepted", h.bookings.Accept)
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete (mate only)
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	h.mateTransition(c, "Booking completed", h.bookings.CompleteByMate)
}

func (h *BookingHandler) mateTransition(c *gin.Context, message string, op func(context.Context, uuid.UUID, uuid.UUID) (*models.Booking, error)) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := op(c.Request.Context(), id, userCtx.UserID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.BookingResponse{
		Message: message,
		Booking: booking,
	})
}

// RejectBooking handles POST /api/v1/bookings/:id/reject (mate only)
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.bookings.Reject(c.Request.Context(), id, userCtx.UserID); err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking rejected"})
}

// SubmitRating handles POST /api/v1/bookings/:id/rating (renter only)
func (h *BookingHandler) SubmitRating(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	profile, err := h.bookings.RecordRating(c.Request.Context(), id, userCtx.UserID, *req.Rating)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.RatingResponse{
		Message:     "Rating recorded",
		Rating:      profile.Rating,
		RatingCount: profile.RatingCount,
	})
}

// Checkout handles GET /api/v1/checkout/:id (renter only)
func (h *BookingHandler) Checkout(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	session, err := h.bookings.InitiatePayment(c.Request.Context(), id, userCtx.UserID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{
		URL:       session.URL,
		SessionID: session.ID,
	})
}
