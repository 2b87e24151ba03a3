package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"labbook/internal/bookings/engine"
	bookingserrors "labbook/internal/bookings/errors"
	"labbook/internal/bookings/events"
	"labbook/internal/bookings/repository"
	"labbook/internal/bookings/validator"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking, actor model.Actor) error
	GetByID(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	GetMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	GetPending(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	Search(ctx context.Context, machineID, date string) ([]*model.Booking, error)
	Approve(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	Reject(ctx context.Context, id string, actor model.Actor, reason string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	machines  repository.MachineFinder
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	machines repository.MachineFinder,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		machines:  machines,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking, actor model.Actor) error {
	booking.RequesterID = actor.ID
	booking.Status = model.StatusPending
	booking.DecisionComment = ""
	s.sanitize(booking)

	if err := s.validate(booking); err != nil {
		return err
	}

	// Serialize submissions per machine/date so the snapshot read and
	// the insert below behave as one atomic check-then-act.
	lockID, err := s.acquireSlotLock(ctx, booking.MachineID, booking.Date)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		machine, err := s.machines.FindByID(sessCtx, booking.MachineID)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrMachineNotFound) {
				return apperrors.NotFoundWithID("Machine", booking.MachineID)
			}
			if errors.Is(err, bookingserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid machine ID format")
			}
			return apperrors.Internal("Failed to look up machine", err)
		}

		existing, err := s.repo.FindOccupying(sessCtx, booking.MachineID, booking.Date)
		if err != nil {
			return apperrors.Internal("Failed to fetch existing bookings", err)
		}

		result := engine.CanAdmit(booking, machine, existing, s.now(), s.admissionConfig())
		if !result.Admitted() {
			return admissionError(result)
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"machine_id", booking.MachineID,
			"date", booking.Date,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"machine_id", booking.MachineID,
		"requester_id", booking.RequesterID,
		"date", booking.Date,
		"start_time", booking.StartTime,
	)
	s.publishEvent(ctx, model.NewBookingEvent(model.EventBookingCreated, booking, actor, ""))
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Students see their own bookings only.
	if booking.RequesterID != actor.ID && !actor.HasRank(model.RoleFaculty) {
		return nil, apperrors.Forbidden("You can only view your own bookings")
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, 0, apperrors.Forbidden("Only faculty or admins can list all bookings")
	}

	return s.findAndCount(ctx,
		func(ctx context.Context) ([]*model.Booking, error) { return s.repo.FindAll(ctx, limit, offset) },
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx) },
	)
}

func (s *bookingService) GetMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.findAndCount(ctx,
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByRequester(ctx, actor.ID, limit, offset)
		},
		func(ctx context.Context) (int64, error) { return s.repo.CountByRequester(ctx, actor.ID) },
	)
}

func (s *bookingService) GetPending(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, 0, apperrors.Forbidden("Only faculty or admins can review pending bookings")
	}

	return s.findAndCount(ctx,
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByStatus(ctx, model.StatusPending, limit, offset)
		},
		func(ctx context.Context) (int64, error) { return s.repo.CountByStatus(ctx, model.StatusPending) },
	)
}

// Search returns the occupying bookings for a machine on a date - the
// availability view any authenticated user may consult before booking.
func (s *bookingService) Search(ctx context.Context, machineID, date string) ([]*model.Booking, error) {
	if machineID == "" || date == "" {
		return nil, apperrors.InvalidInput("machine_id and date are required")
	}
	if _, ok := engine.ParseDate(date, time.UTC); !ok {
		return nil, apperrors.InvalidInput("date must be in YYYY-MM-DD format")
	}

	bookings, err := s.repo.FindOccupying(ctx, machineID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to search bookings", "machine_id", machineID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to search bookings", err)
	}

	return bookings, nil
}

func (s *bookingService) Approve(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	return s.transition(ctx, id, engine.ActionApprove, actor, "", model.EventBookingApproved)
}

func (s *bookingService) Reject(ctx context.Context, id string, actor model.Actor, reason string) (*model.Booking, error) {
	return s.transition(ctx, id, engine.ActionReject, actor, reason, model.EventBookingRejected)
}

func (s *bookingService) Cancel(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	return s.transition(ctx, id, engine.ActionCancel, actor, "", model.EventBookingCancelled)
}

// transition applies a lifecycle action inside a transaction so the
// status read and the write cannot interleave with a concurrent
// transition on the same booking.
func (s *bookingService) transition(ctx context.Context, id, action string, actor model.Actor, reason, eventType string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	var updated *model.Booking
	var oldStatus string

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.findByID(sessCtx, id)
		if err != nil {
			return err
		}
		oldStatus = booking.Status

		result, terr := engine.Transition(booking, action, actor, reason, s.now())
		if terr != nil {
			return transitionError(terr)
		}

		if err := s.repo.UpdateStatus(sessCtx, id, result); err != nil {
			return apperrors.Internal("Failed to update booking status", err)
		}

		updated = result
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Booking transition failed",
			"id", id,
			"action", action,
			"actor_id", actor.ID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking transition applied",
		"id", id,
		"action", action,
		"actor_id", actor.ID,
		"old_status", oldStatus,
		"new_status", updated.Status,
	)
	s.publishEvent(ctx, model.NewBookingEvent(eventType, updated, actor, oldStatus))
	return updated, nil
}

// --- Helpers ---

func (s *bookingService) findByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) findAndCount(
	ctx context.Context,
	find func(ctx context.Context) ([]*model.Booking, error),
	count func(ctx context.Context) (int64, error),
) ([]*model.Booking, int64, error) {
	var total int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = find(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, total, nil
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.Purpose = sanitizer.NormalizePurpose(b.Purpose)
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) admissionConfig() engine.Config {
	return engine.Config{
		MaxDuration:    s.cfg.MaxBookingDuration,
		MaxAdvanceDays: s.cfg.MaxAdvanceDays,
	}
}

func (s *bookingService) publishEvent(ctx context.Context, event *model.BookingEvent) {
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}

// acquireSlotLock creates an advisory lock covering all submissions for
// a machine on a date. Returns the lock ID, or CONFLICT_AT_COMMIT when
// another request holds it.
func (s *bookingService) acquireSlotLock(ctx context.Context, machineID, date string) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s_%s", machineID, date)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(s.cfg.LockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return "", apperrors.ConflictAtCommit("This slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

// admissionError maps an admission rejection onto the HTTP error model,
// keeping the engine's code intact for the client.
func admissionError(res engine.AdmissionResult) *apperrors.AppError {
	status := http.StatusUnprocessableEntity
	switch res.Code {
	case engine.CodeSlotConflict, engine.CodeResourceUnavail:
		status = http.StatusConflict
	}

	appErr := apperrors.New(res.Code, res.Message, status)
	if res.ConflictingID != "" {
		appErr = appErr.WithDetails(map[string]any{"conflicting_booking_id": res.ConflictingID})
	}
	return appErr
}

func transitionError(terr *engine.TransitionError) *apperrors.AppError {
	status := http.StatusConflict
	switch terr.Code {
	case engine.CodeForbidden:
		status = http.StatusForbidden
	case engine.CodeReasonRequired:
		status = http.StatusUnprocessableEntity
	}

	return apperrors.New(terr.Code, terr.Message, status)
}
