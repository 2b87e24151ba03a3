package service

import (
	"context"
	"testing"
	"time"

	"labbook/internal/machines/repository"
	"labbook/internal/machines/validator"
	"labbook/pkg/config"
	mongotx "labbook/pkg/db/mongo"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	studentActor = model.Actor{ID: "student-1", Role: model.RoleStudent}
	adminActor   = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

type mockMachineRepository struct {
	findByIDFunc         func(ctx context.Context, id string) (*model.Machine, error)
	findByDepartmentFunc func(ctx context.Context, department string) ([]*model.Machine, error)

	createdMachine  *model.Machine
	updatedMachine  *model.Machine
	deactivatedID   string
	capturedActives []bool
}

func (m *mockMachineRepository) Create(ctx context.Context, machine *model.Machine) error {
	m.createdMachine = machine
	machine.ID = "665a1b2c3d4e5f6a7b8c9d0e"
	return nil
}

func (m *mockMachineRepository) FindByID(ctx context.Context, id string) (*model.Machine, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockMachineRepository) FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Machine, error) {
	m.capturedActives = append(m.capturedActives, activeOnly)
	return []*model.Machine{}, nil
}

func (m *mockMachineRepository) FindByDepartment(ctx context.Context, department string) ([]*model.Machine, error) {
	if m.findByDepartmentFunc != nil {
		return m.findByDepartmentFunc(ctx, department)
	}
	return []*model.Machine{}, nil
}

func (m *mockMachineRepository) Search(ctx context.Context, department, location string, activeOnly bool) ([]*model.Machine, error) {
	m.capturedActives = append(m.capturedActives, activeOnly)
	return []*model.Machine{}, nil
}

func (m *mockMachineRepository) Update(ctx context.Context, id string, machine *model.Machine) (*mongo.UpdateResult, error) {
	m.updatedMachine = machine
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *mockMachineRepository) SetActive(ctx context.Context, id string, active bool) error {
	m.deactivatedID = id
	return nil
}

func (m *mockMachineRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	return 0, nil
}

func (m *mockMachineRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

var _ repository.MachineRepository = (*mockMachineRepository)(nil)

func newService(repo *mockMachineRepository) MachineService {
	log := logger.New(logger.Config{Level: "error", Format: "json", Service: "test"})
	cfg := &config.Config{
		Log:         log,
		ReadTimeout: 5 * time.Second,
	}
	return NewMachineService(repo, validator.NewMachineValidator(log), cfg)
}

func newMachine() *model.Machine {
	return &model.Machine{
		Name:       "CNC Mill",
		Department: "Mechanical Engineering",
		Location:   "Lab 204",
	}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected *apperrors.AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestCreate_RequiresAdmin(t *testing.T) {
	repo := &mockMachineRepository{}
	svc := newService(repo)

	err := svc.Create(context.Background(), newMachine(), studentActor)
	if code := errorCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}
	if repo.createdMachine != nil {
		t.Error("machine must not be created by a non-admin")
	}
}

func TestCreate_AdminSucceedsAndActivates(t *testing.T) {
	repo := &mockMachineRepository{}
	svc := newService(repo)

	machine := newMachine()
	if err := svc.Create(context.Background(), machine, adminActor); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if !machine.IsActive {
		t.Error("new machines should start active")
	}
	if machine.ID == "" {
		t.Error("expected the generated ID to be set")
	}
}

func TestCreate_DuplicateNameInDepartment(t *testing.T) {
	repo := &mockMachineRepository{
		findByDepartmentFunc: func(ctx context.Context, department string) ([]*model.Machine, error) {
			return []*model.Machine{{ID: "other", Name: "cnc mill", Department: department}}, nil
		},
	}
	svc := newService(repo)

	err := svc.Create(context.Background(), newMachine(), adminActor)
	if code := errorCode(t, err); code != apperrors.CodeConflict {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	repo := &mockMachineRepository{}
	svc := newService(repo)

	machine := newMachine()
	machine.Name = "x"

	err := svc.Create(context.Background(), machine, adminActor)
	if code := errorCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeValidation)
	}
}

func TestGetAll_StudentsSeeActiveOnly(t *testing.T) {
	repo := &mockMachineRepository{}
	svc := newService(repo)

	if _, _, err := svc.GetAll(context.Background(), studentActor, 10, 0); err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if _, _, err := svc.GetAll(context.Background(), adminActor, 10, 0); err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}

	if len(repo.capturedActives) != 2 || !repo.capturedActives[0] || repo.capturedActives[1] {
		t.Errorf("activeOnly flags = %v, want [true false]", repo.capturedActives)
	}
}

func TestUpdate_MergesPartialFields(t *testing.T) {
	existing := &model.Machine{
		ID:         "665a1b2c3d4e5f6a7b8c9d0e",
		Name:       "CNC Mill",
		Department: "Mechanical Engineering",
		Location:   "Lab 204",
		IsActive:   true,
	}
	repo := &mockMachineRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Machine, error) {
			return existing, nil
		},
	}
	svc := newService(repo)

	newLocation := "Lab 310"
	updates := &model.MachineUpdate{Location: &newLocation}

	if err := svc.Update(context.Background(), existing.ID, updates, adminActor); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if repo.updatedMachine == nil {
		t.Fatal("expected the merged machine to be persisted")
	}
	if repo.updatedMachine.Location != newLocation {
		t.Errorf("location = %q, want %q", repo.updatedMachine.Location, newLocation)
	}
	if repo.updatedMachine.Name != existing.Name {
		t.Errorf("name should be unchanged, got %q", repo.updatedMachine.Name)
	}
}

func TestDeactivate(t *testing.T) {
	repo := &mockMachineRepository{}
	svc := newService(repo)

	err := svc.Deactivate(context.Background(), "665a1b2c3d4e5f6a7b8c9d0e", studentActor)
	if code := errorCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}

	if err := svc.Deactivate(context.Background(), "665a1b2c3d4e5f6a7b8c9d0e", adminActor); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	if repo.deactivatedID != "665a1b2c3d4e5f6a7b8c9d0e" {
		t.Errorf("deactivated id = %q", repo.deactivatedID)
	}
}

func TestSearch_RequiresCriteria(t *testing.T) {
	svc := newService(&mockMachineRepository{})

	_, err := svc.Search(context.Background(), "", "", studentActor)
	if code := errorCode(t, err); code != apperrors.CodeInvalidInput {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidInput)
	}
}
