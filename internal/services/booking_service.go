package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// sweepBatchSize bounds how many elapsed bookings one completion sweep handles
const sweepBatchSize = 100

// Actor is the authenticated caller of a booking operation
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

// CreateBookingInput is a validated booking request
type CreateBookingInput struct {
	MateID   uuid.UUID
	Activity string
	Interval models.Interval
}

// ParseCreateRequest validates the wire request into a CreateBookingInput
func ParseCreateRequest(req *models.CreateBookingRequest) (CreateBookingInput, error) {
	mateID, err := uuid.Parse(req.Provider())
	if err != nil {
		return CreateBookingInput{}, validationError("INVALID_PROVIDER_ID", "providerId must be a valid id")
	}

	activity := strings.TrimSpace(req.Activity)
	if activity == "" {
		return CreateBookingInput{}, validationError("INVALID_ACTIVITY", "activity is required")
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		return CreateBookingInput{}, validationError("INVALID_DATE", "date must be YYYY-MM-DD")
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return CreateBookingInput{}, validationError("INVALID_START_TIME", "startTime must be HH:MM")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return CreateBookingInput{}, validationError("INVALID_END_TIME", "endTime must be HH:MM")
	}

	iv, err := models.NewInterval(date, start, end)
	if err != nil {
		return CreateBookingInput{}, validationError("INVALID_INTERVAL", "startTime must be before endTime")
	}

	return CreateBookingInput{MateID: mateID, Activity: activity, Interval: iv}, nil
}

// BookingService is the booking lifecycle state machine.
// Every status change goes through applyTransition while the booking row is locked.
type BookingService struct {
	tx       *database.TxRunner
	bookings *database.BookingRepository
	profiles *database.MateProfileRepository
	detector *ConflictDetector
	gateway  PaymentGateway
	ratings  *RatingService
	config   *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	tx *database.TxRunner,
	bookings *database.BookingRepository,
	profiles *database.MateProfileRepository,
	detector *ConflictDetector,
	gateway PaymentGateway,
	ratings *RatingService,
	cfg *config.Config,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *BookingService {
	return &BookingService{
		tx:       tx,
		bookings: bookings,
		profiles: profiles,
		detector: detector,
		gateway:  gateway,
		ratings:  ratings,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Create books a slot for renterID in PENDING. The profile row lock, the overlap check
// and the insert share one transaction; the exclusion constraint on bookings backs it up.
func (s *BookingService) Create(ctx context.Context, renterID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	if in.MateID == renterID {
		return nil, validationError("SELF_BOOKING", "you cannot book yourself")
	}
	if err := in.Interval.Validate(); err != nil {
		return nil, validationError("INVALID_INTERVAL", err.Error())
	}

	var booking *models.Booking
	err := s.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		profile, err := s.profiles.WithTx(tx).GetByUserIDForUpdate(ctx, in.MateID)
		if err != nil {
			return infrastructureError("failed to load mate profile", err)
		}
		if profile == nil {
			return ErrProviderNotFound
		}
		if !profile.IsAvailable {
			return ErrMateNotAvailable
		}

		conflict, err := s.detector.WithTx(tx).overlaps(ctx, in.MateID, in.Interval)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotTaken
		}

		b := &models.Booking{
			RenterID:    renterID,
			MateID:      in.MateID,
			Activity:    in.Activity,
			Date:        in.Interval.Date,
			StartTime:   in.Interval.Start,
			EndTime:     in.Interval.End,
			TotalAmount: in.Interval.Price(profile.HourlyRate),
			Status:      models.BookingStatusPending,
		}
		if err := s.bookings.WithTx(tx).Create(ctx, b); err != nil {
			if database.IsExclusionViolation(err) {
				return ErrSlotTaken
			}
			return infrastructureError("failed to create booking", err)
		}
		booking = b
		return nil
	})
	s.observeCreate(err)
	if err != nil {
		return nil, infrastructureError("failed to create booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"renter_id":    renterID,
		"mate_id":      in.MateID,
		"date":         booking.Date.String(),
		"start":        booking.StartTime.String(),
		"end":          booking.EndTime.String(),
		"total_amount": booking.TotalAmount,
	}).Info("Booking created")

	return booking, nil
}

// Accept moves a PENDING booking to PAYMENT_PENDING on behalf of its mate
func (s *BookingService) Accept(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, bookingID, requireMate(mateID), models.BookingStatusPaymentPending)
}

// Reject deletes a booking on behalf of its mate, whatever its status
func (s *BookingService) Reject(ctx context.Context, bookingID, mateID uuid.UUID) error {
	var status models.BookingStatus
	err := s.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		repo := s.bookings.WithTx(tx)
		booking, err := s.lock(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		if err := requireMate(mateID)(booking); err != nil {
			return err
		}
		deleted, err := repo.Delete(ctx, booking.ID)
		if err != nil {
			return infrastructureError("failed to delete booking", err)
		}
		if !deleted {
			return ErrBookingNotFound
		}
		status = booking.Status
		return nil
	})
	if err != nil {
		return infrastructureError("failed to reject booking", err)
	}

	s.metrics.BookingTransitionsTotal.WithLabelValues(string(status), "REJECTED").Inc()
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"mate_id":    mateID,
		"status":     status,
	}).Info("Booking rejected and deleted")
	return nil
}

// InitiatePayment creates a checkout session for a PAYMENT_PENDING booking.
// The booking status is not changed; only the session id is stored for expiry matching.
func (s *BookingService) InitiatePayment(ctx context.Context, bookingID, renterID uuid.UUID) (*models.CheckoutSession, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, infrastructureError("failed to load booking", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.RenterID != renterID {
		return nil, forbiddenError("only the renter of this booking can pay for it")
	}
	if booking.Status != models.BookingStatusPaymentPending {
		return nil, invalidStateError(fmt.Sprintf("booking must be %s to start payment, got %s", models.BookingStatusPaymentPending, booking.Status))
	}

	bookingURL := fmt.Sprintf("%s/bookings/%s", s.config.Payment.AppBaseURL, booking.ID)
	session, err := s.gateway.CreateCheckoutSession(ctx, &models.CheckoutRequest{
		BookingID:  booking.ID,
		RenterID:   booking.RenterID,
		MateID:     booking.MateID,
		Activity:   booking.Activity,
		Amount:     booking.TotalAmount,
		SuccessURL: bookingURL + "?success=true",
		CancelURL:  bookingURL + "?canceled=true",
	})
	if err != nil {
		return nil, infrastructureError("failed to create checkout session", err)
	}

	stored, err := s.bookings.SetCheckoutSession(ctx, booking.ID, session.ID)
	if err != nil {
		return nil, infrastructureError("failed to store checkout session", err)
	}
	if !stored {
		return nil, invalidStateError("booking left payment phase while checkout was being created")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"session_id": session.ID,
	}).Info("Checkout session created for booking")

	return session, nil
}

// ConfirmOnPaymentSuccess moves PAYMENT_PENDING to CONFIRMED.
// Applying it to a booking that is already CONFIRMED or COMPLETED is a no-op.
func (s *BookingService) ConfirmOnPaymentSuccess(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	var changed bool
	err := s.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		var err error
		booking, changed, err = s.confirmInTx(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		return nil, infrastructureError("failed to confirm booking", err)
	}
	if changed {
		s.metrics.BookingTransitionsTotal.WithLabelValues(string(models.BookingStatusPaymentPending), string(models.BookingStatusConfirmed)).Inc()
	}
	return booking, nil
}

// confirmInTx reports whether the status actually changed
func (s *BookingService) confirmInTx(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID) (*models.Booking, bool, error) {
	repo := s.bookings.WithTx(tx)
	booking, err := s.lock(ctx, repo, bookingID)
	if err != nil {
		return nil, false, err
	}

	switch booking.Status {
	case models.BookingStatusConfirmed, models.BookingStatusCompleted:
		return booking, false, nil
	case models.BookingStatusPaymentPending:
		if err := applyTransition(ctx, repo, booking, models.BookingStatusConfirmed); err != nil {
			return nil, false, err
		}
		return booking, true, nil
	default:
		return nil, false, invalidStateError(fmt.Sprintf("payment received for booking in %s", booking.Status))
	}
}

// expireInTx applies the configured expiry policy. Only the session currently attached to a
// PAYMENT_PENDING booking can expire it; anything else is observed without a change.
func (s *BookingService) expireInTx(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID, sessionID string) (*models.Booking, models.BookingStatus, error) {
	repo := s.bookings.WithTx(tx)
	booking, err := s.lock(ctx, repo, bookingID)
	if err != nil {
		return nil, "", err
	}

	var target models.BookingStatus
	switch s.config.Booking.ExpiryPolicy {
	case config.ExpiryPolicyRevert:
		target = models.BookingStatusPending
	case config.ExpiryPolicyCancel:
		target = models.BookingStatusCancelled
	default:
		return booking, "", nil
	}

	if booking.Status != models.BookingStatusPaymentPending ||
		booking.CheckoutSessionID == nil || *booking.CheckoutSessionID != sessionID {
		return booking, "", nil
	}

	from := booking.Status
	if err := applyTransition(ctx, repo, booking, target); err != nil {
		return nil, "", err
	}
	return booking, from, nil
}

// MarkCompleted moves CONFIRMED to COMPLETED. Used by the completion sweep.
func (s *BookingService) MarkCompleted(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, bookingID, nil, models.BookingStatusCompleted)
}

// CompleteByMate moves CONFIRMED to COMPLETED on behalf of the booking's mate
func (s *BookingService) CompleteByMate(ctx context.Context, bookingID, mateID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, bookingID, requireMate(mateID), models.BookingStatusCompleted)
}

// RecordRating rates a COMPLETED booking and deletes it
func (s *BookingService) RecordRating(ctx context.Context, bookingID, renterID uuid.UUID, value float64) (*models.MateProfile, error) {
	return s.ratings.SubmitRating(ctx, bookingID, renterID, value)
}

// Get returns a booking visible to userID. Non-participants get NotFound.
func (s *BookingService) Get(ctx context.Context, bookingID, userID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, infrastructureError("failed to load booking", err)
	}
	if booking == nil || !booking.IsParticipant(userID) {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// List returns the caller's bookings, optionally filtered by status
func (s *BookingService) List(ctx context.Context, actor Actor, status *models.BookingStatus) ([]*models.Booking, error) {
	var (
		bookings []*models.Booking
		err      error
	)
	switch actor.Role {
	case models.RoleRenter:
		bookings, err = s.bookings.ListByRenter(ctx, actor.UserID, status)
	case models.RoleMate:
		bookings, err = s.bookings.ListByMate(ctx, actor.UserID, status)
	default:
		return nil, forbiddenError(fmt.Sprintf("role %q cannot list bookings", actor.Role))
	}
	if err != nil {
		return nil, infrastructureError("failed to list bookings", err)
	}
	return bookings, nil
}

// SweepCompleted marks CONFIRMED bookings whose slot has ended as COMPLETED.
// Returns how many were completed.
func (s *BookingService) SweepCompleted(ctx context.Context) (int, error) {
	ids, err := s.bookings.ListElapsedConfirmed(ctx, s.now(), s.config.Booking.Location, sweepBatchSize)
	if err != nil {
		return 0, infrastructureError("failed to list elapsed bookings", err)
	}

	completed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if _, err := s.MarkCompleted(ctx, id); err != nil {
			if KindOf(err) == KindInvalidState || KindOf(err) == KindNotFound {
				// moved or deleted since listing
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// transition locks the booking, authorizes the caller and applies one edge of the state machine
func (s *BookingService) transition(ctx context.Context, bookingID uuid.UUID, authorize func(*models.Booking) error, to models.BookingStatus) (*models.Booking, error) {
	var (
		booking *models.Booking
		from    models.BookingStatus
	)
	err := s.tx.Run(ctx, database.ReadCommitted, func(tx *sqlx.Tx) error {
		repo := s.bookings.WithTx(tx)
		b, err := s.lock(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(b); err != nil {
				return err
			}
		}
		from = b.Status
		if err := applyTransition(ctx, repo, b, to); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, infrastructureError("failed to update booking", err)
	}

	s.metrics.BookingTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       from,
		"to":         to,
	}).Info("Booking status changed")

	return booking, nil
}

func (s *BookingService) lock(ctx context.Context, repo *database.BookingRepository, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := repo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, infrastructureError("failed to load booking", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// applyTransition is the single place a booking status is written
func applyTransition(ctx context.Context, repo *database.BookingRepository, booking *models.Booking, to models.BookingStatus) error {
	if !booking.Status.CanTransitionTo(to) {
		return invalidStateError(fmt.Sprintf("cannot move booking from %s to %s", booking.Status, to))
	}

	ok, err := repo.UpdateStatus(ctx, booking.ID, booking.Status, to)
	if err != nil {
		return infrastructureError("failed to update booking status", err)
	}
	if !ok {
		return invalidStateError("booking status changed concurrently")
	}

	booking.Status = to
	return nil
}

func requireMate(mateID uuid.UUID) func(*models.Booking) error {
	return func(b *models.Booking) error {
		if b.MateID != mateID {
			return forbiddenError("only the booked mate can do this")
		}
		return nil
	}
}

func (s *BookingService) observeCreate(err error) {
	result := "created"
	if err != nil {
		switch KindOf(err) {
		case KindSlotConflict:
			result = "conflict"
		case KindNotAvailable:
			result = "not_available"
		case KindNotFound:
			result = "provider_not_found"
		default:
			result = "error"
		}
	}
	s.metrics.BookingCreateTotal.WithLabelValues(result).Inc()
}
