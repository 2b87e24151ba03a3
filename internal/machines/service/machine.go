package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	machineserrors "labbook/internal/machines/errors"
	"labbook/internal/machines/repository"
	"labbook/internal/machines/validator"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type MachineService interface {
	Create(ctx context.Context, machine *model.Machine, actor model.Actor) error
	GetByID(ctx context.Context, id string) (*model.Machine, error)
	GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Machine, int64, error)
	Search(ctx context.Context, department, location string, actor model.Actor) ([]*model.Machine, error)
	Update(ctx context.Context, id string, updates *model.MachineUpdate, actor model.Actor) error
	Deactivate(ctx context.Context, id string, actor model.Actor) error
}

type machineService struct {
	repo      repository.MachineRepository
	validator *validator.MachineValidator
	cfg       *config.Config
}

func NewMachineService(
	repo repository.MachineRepository,
	validator *validator.MachineValidator,
	cfg *config.Config,
) MachineService {
	return &machineService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *machineService) Create(ctx context.Context, machine *model.Machine, actor model.Actor) error {
	if !actor.HasRank(model.RoleAdmin) {
		return apperrors.Forbidden("Only admins can add machines")
	}

	s.sanitize(machine)
	machine.IsActive = true

	if err := s.validator.Validate(machine); err != nil {
		s.cfg.Log.Warn("Machine validation failed",
			"name", machine.Name,
			"department", machine.Department,
			"error", err,
		)
		return apperrors.Validation("Machine validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByDepartment(sessCtx, machine.Department)
		if err != nil {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}

		for _, m := range existing {
			if sameName(machine.Name, m.Name) {
				return apperrors.Conflict(fmt.Sprintf(
					"A machine with this name already exists in %s (id: %s)",
					machine.Department, m.ID,
				))
			}
		}

		if err := s.repo.Create(sessCtx, machine); err != nil {
			return fmt.Errorf("failed to create machine: %w", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create machine",
			"name", machine.Name,
			"department", machine.Department,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Machine created successfully",
		"id", machine.ID,
		"name", machine.Name,
		"department", machine.Department,
	)
	return nil
}

func (s *machineService) GetByID(ctx context.Context, id string) (*model.Machine, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Machine ID cannot be empty")
	}

	machine, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, machineserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Machine", id)
		}
		if errors.Is(err, machineserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid machine ID format")
		}
		s.cfg.Log.Error("Failed to get machine by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve machine", err)
	}

	return machine, nil
}

// GetAll lists machines. Admins see the whole catalogue, everyone else
// sees active machines only.
func (s *machineService) GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Machine, int64, error) {
	activeOnly := !actor.HasRank(model.RoleAdmin)

	var count int64
	var machines []*model.Machine
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, activeOnly)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count machines", "error", errCount)
			errCount = apperrors.Internal("Failed to count machines", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		machines, errFind = s.repo.FindAll(ctx, activeOnly, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list machines", "limit", limit, "offset", offset, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve machines", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return machines, count, nil
}

func (s *machineService) Search(ctx context.Context, department, location string, actor model.Actor) ([]*model.Machine, error) {
	if department == "" && location == "" {
		return nil, apperrors.InvalidInput("At least one of department or location is required")
	}

	department = sanitizer.NormalizeDepartment(department)
	location = sanitizer.TrimAndNormalize(location)
	activeOnly := !actor.HasRank(model.RoleAdmin)

	machines, err := s.repo.Search(ctx, department, location, activeOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to search machines",
			"department", department,
			"location", location,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to search machines", err)
	}

	return machines, nil
}

func (s *machineService) Update(ctx context.Context, id string, updates *model.MachineUpdate, actor model.Actor) error {
	if !actor.HasRank(model.RoleAdmin) {
		return apperrors.Forbidden("Only admins can edit machines")
	}
	if id == "" {
		return apperrors.InvalidInput("Machine ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Machine update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeMachineUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		return apperrors.Validation("Machine validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update machine", "id", id, "error", err)
		return apperrors.Internal("Failed to update machine", err)
	}

	s.cfg.Log.Info("Machine updated successfully", "id", id, "name", merged.Name)
	return nil
}

// Deactivate takes a machine out of service. Existing bookings keep
// referencing it; new admissions are refused while it is inactive.
func (s *machineService) Deactivate(ctx context.Context, id string, actor model.Actor) error {
	if !actor.HasRank(model.RoleAdmin) {
		return apperrors.Forbidden("Only admins can deactivate machines")
	}
	if id == "" {
		return apperrors.InvalidInput("Machine ID cannot be empty")
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, machineserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Machine", id)
		}
		if errors.Is(err, machineserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid machine ID format")
		}
		s.cfg.Log.Error("Failed to deactivate machine", "id", id, "error", err)
		return apperrors.Internal("Failed to deactivate machine", err)
	}

	s.cfg.Log.Info("Machine deactivated", "id", id, "actor_id", actor.ID)
	return nil
}

func (s *machineService) sanitize(m *model.Machine) {
	m.Name = sanitizer.NormalizeName(m.Name)
	m.Description = sanitizer.TrimAndNormalize(m.Description)
	m.Department = sanitizer.NormalizeDepartment(m.Department)
	m.Location = sanitizer.TrimAndNormalize(m.Location)
	m.ImageURL = sanitizer.SanitizeURL(m.ImageURL)
}

func (s *machineService) mergeMachineUpdates(existing *model.Machine, updates *model.MachineUpdate) *model.Machine {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Department != "" {
		merged.Department = updates.Department
	}
	if updates.Location != nil {
		merged.Location = *updates.Location
	}
	if updates.Specifications != nil {
		merged.Specifications = *updates.Specifications
	}
	if updates.ImageURL != nil {
		merged.ImageURL = *updates.ImageURL
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}
	if updates.RequiresTraining != nil {
		merged.RequiresTraining = *updates.RequiresTraining
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt

	return &merged
}

func sameName(a, b string) bool {
	return strings.EqualFold(sanitizer.NormalizeName(a), sanitizer.NormalizeName(b))
}
