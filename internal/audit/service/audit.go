package service

import (
	"context"
	"sync"

	"labbook/internal/audit/repository"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
)

// AuditService exposes the booking audit trail to reviewers. The trail
// is faculty-facing: students dispute decisions through their reviewer,
// not by reading the raw log.
type AuditService interface {
	GetRecent(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.BookingEvent, int64, error)
	GetByBooking(ctx context.Context, bookingID string, actor model.Actor) ([]*model.BookingEvent, error)
}

type auditService struct {
	repo repository.AuditRepository
	cfg  *config.Config
}

func NewAuditService(repo repository.AuditRepository, cfg *config.Config) AuditService {
	return &auditService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *auditService) GetRecent(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.BookingEvent, int64, error) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, 0, apperrors.Forbidden("Only faculty or admins can read the audit trail")
	}

	var total int64
	var events []*model.BookingEvent
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count audit events", "error", errCount)
			errCount = apperrors.Internal("Failed to count audit events", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		events, errFind = s.repo.FindRecent(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list audit events", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve audit events", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return events, total, nil
}

func (s *auditService) GetByBooking(ctx context.Context, bookingID string, actor model.Actor) ([]*model.BookingEvent, error) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, apperrors.Forbidden("Only faculty or admins can read the audit trail")
	}
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	events, err := s.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to get audit events for booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve audit events", err)
	}

	return events, nil
}
