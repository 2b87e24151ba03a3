package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"labbook/internal/bookings/engine"
	bookingserrors "labbook/internal/bookings/errors"
	"labbook/internal/bookings/repository"
	"labbook/internal/bookings/validator"
	"labbook/pkg/config"
	mongotx "labbook/pkg/db/mongo"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testMachineID = "665a1b2c3d4e5f6a7b8c9d0e"
	testBookingID = "507f1f77bcf86cd799439011"
)

// 2024-06-01 08:00 UTC.
var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

var (
	studentActor = model.Actor{ID: "student-1", Role: model.RoleStudent}
	facultyActor = model.Actor{ID: "faculty-1", Role: model.RoleFaculty}
)

type mockBookingRepository struct {
	createFunc        func(ctx context.Context, booking *model.Booking) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Booking, error)
	findOccupyingFunc func(ctx context.Context, machineID, date string) ([]*model.Booking, error)
	updateStatusFunc  func(ctx context.Context, id string, booking *model.Booking) error

	createdBooking *model.Booking
	updatedBooking *model.Booking
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.createdBooking = booking
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = testBookingID
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindOccupying(ctx context.Context, machineID, date string) ([]*model.Booking, error) {
	if m.findOccupyingFunc != nil {
		return m.findOccupyingFunc(ctx, machineID, date)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindByRequester(ctx context.Context, requesterID string, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, booking *model.Booking) error {
	m.updatedBooking = booking
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, booking)
	}
	return nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockBookingRepository) CountByRequester(ctx context.Context, requesterID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) CountByMachine(ctx context.Context, machineID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error)
	deleted    []string
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

type mockMachineFinder struct {
	machine *model.Machine
	err     error
}

func (m *mockMachineFinder) FindByID(ctx context.Context, id string) (*model.Machine, error) {
	return m.machine, m.err
}

type mockPublisher struct {
	events []*model.BookingEvent
}

func (m *mockPublisher) PublishBookingEvent(ctx context.Context, event *model.BookingEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type serviceFixture struct {
	service   *bookingService
	repo      *mockBookingRepository
	locks     *mockLockRepository
	machines  *mockMachineFinder
	publisher *mockPublisher
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "json", Service: "test"})
	cfg := &config.Config{
		Log:                log,
		MaxBookingDuration: 8 * time.Hour,
		MaxAdvanceDays:     30,
		LockTTL:            10 * time.Second,
	}

	f := &serviceFixture{
		repo:  &mockBookingRepository{},
		locks: &mockLockRepository{},
		machines: &mockMachineFinder{
			machine: &model.Machine{ID: testMachineID, Name: "CNC Mill", IsActive: true},
		},
		publisher: &mockPublisher{},
	}

	svc := NewBookingService(f.repo, f.locks, f.machines, f.publisher, validator.NewBookingValidator(log), cfg)
	f.service = svc.(*bookingService)
	f.service.now = func() time.Time { return testNow }
	return f
}

func newCandidate() *model.Booking {
	return &model.Booking{
		MachineID: testMachineID,
		Date:      "2024-06-02",
		StartTime: "09:00",
		EndTime:   "10:00",
		Purpose:   "Milling practice",
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

func TestCreate_AdmitsAndPublishesEvent(t *testing.T) {
	f := newFixture(t)

	booking := newCandidate()
	if err := f.service.Create(context.Background(), booking, studentActor); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if booking.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", booking.Status)
	}
	if booking.RequesterID != studentActor.ID {
		t.Errorf("requester_id = %s, want %s", booking.RequesterID, studentActor.ID)
	}
	if f.repo.createdBooking == nil {
		t.Fatal("expected booking to be persisted")
	}

	if len(f.publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.publisher.events))
	}
	event := f.publisher.events[0]
	if event.EventType != model.EventBookingCreated {
		t.Errorf("event type = %s, want %s", event.EventType, model.EventBookingCreated)
	}
	if event.BookingID != testBookingID {
		t.Errorf("event booking_id = %s, want %s", event.BookingID, testBookingID)
	}

	if len(f.locks.deleted) != 1 {
		t.Errorf("expected the slot lock to be released, deleted = %v", f.locks.deleted)
	}
}

func TestCreate_SlotConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.findOccupyingFunc = func(ctx context.Context, machineID, date string) ([]*model.Booking, error) {
		return []*model.Booking{{
			ID:        "existing-1",
			MachineID: machineID,
			Date:      date,
			StartTime: "09:30",
			EndTime:   "10:30",
			Status:    model.StatusApproved,
		}}, nil
	}

	err := f.service.Create(context.Background(), newCandidate(), studentActor)
	if code := errorCode(t, err); code != engine.CodeSlotConflict {
		t.Fatalf("error code = %s, want %s", code, engine.CodeSlotConflict)
	}

	appErr := err.(*apperrors.AppError)
	if appErr.Details["conflicting_booking_id"] != "existing-1" {
		t.Errorf("details = %v, want conflicting_booking_id=existing-1", appErr.Details)
	}
	if f.repo.createdBooking != nil {
		t.Error("booking must not be persisted on conflict")
	}
	if len(f.publisher.events) != 0 {
		t.Error("no event should be published on conflict")
	}
}

func TestCreate_InactiveMachine(t *testing.T) {
	f := newFixture(t)
	f.machines.machine.IsActive = false

	err := f.service.Create(context.Background(), newCandidate(), studentActor)
	if code := errorCode(t, err); code != engine.CodeResourceUnavail {
		t.Fatalf("error code = %s, want %s", code, engine.CodeResourceUnavail)
	}
}

func TestCreate_LockContention(t *testing.T) {
	f := newFixture(t)
	f.locks.createFunc = func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
		return nil, fmt.Errorf("lock %s: %w", lock.ID, bookingserrors.ErrLockHeld)
	}

	err := f.service.Create(context.Background(), newCandidate(), studentActor)
	if code := errorCode(t, err); code != apperrors.CodeConflictAtCommit {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeConflictAtCommit)
	}
	if f.repo.createdBooking != nil {
		t.Error("booking must not be persisted while the lock is held elsewhere")
	}
}

func TestCreate_StructuralValidationFailure(t *testing.T) {
	f := newFixture(t)

	booking := newCandidate()
	booking.Date = "02/06/2024"

	err := f.service.Create(context.Background(), booking, studentActor)
	if code := errorCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeValidation)
	}
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		actor    model.Actor
		wantErr  string
		wantType string
	}{
		{"faculty approves pending", model.StatusPending, facultyActor, "", model.EventBookingApproved},
		{"student cannot approve", model.StatusPending, studentActor, engine.CodeForbidden, ""},
		{"no resurrection of rejected", model.StatusRejected, facultyActor, engine.CodeInvalidTransition, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
				return &model.Booking{
					ID:          id,
					MachineID:   testMachineID,
					RequesterID: "student-1",
					Date:        "2024-06-02",
					StartTime:   "09:00",
					EndTime:     "10:00",
					Status:      tc.status,
				}, nil
			}

			updated, err := f.service.Approve(context.Background(), testBookingID, tc.actor)
			if tc.wantErr != "" {
				if code := errorCode(t, err); code != tc.wantErr {
					t.Fatalf("error code = %s, want %s", code, tc.wantErr)
				}
				if len(f.publisher.events) != 0 {
					t.Error("no event should be published on a failed transition")
				}
				return
			}
			if err != nil {
				t.Fatalf("Approve() failed: %v", err)
			}
			if updated.Status != model.StatusApproved {
				t.Errorf("status = %s, want approved", updated.Status)
			}
			if f.repo.updatedBooking == nil {
				t.Fatal("expected status update to be persisted")
			}
			if len(f.publisher.events) != 1 || f.publisher.events[0].EventType != tc.wantType {
				t.Fatalf("events = %+v, want one %s", f.publisher.events, tc.wantType)
			}
			if f.publisher.events[0].OldStatus != model.StatusPending {
				t.Errorf("event old_status = %s, want pending", f.publisher.events[0].OldStatus)
			}
		})
	}
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, RequesterID: "student-1", Status: model.StatusPending}, nil
	}

	_, err := f.service.Reject(context.Background(), testBookingID, facultyActor, "  ")
	if code := errorCode(t, err); code != engine.CodeReasonRequired {
		t.Fatalf("error code = %s, want %s", code, engine.CodeReasonRequired)
	}

	updated, err := f.service.Reject(context.Background(), testBookingID, facultyActor, "Machine maintenance")
	if err != nil {
		t.Fatalf("Reject() failed: %v", err)
	}
	if updated.DecisionComment != "Machine maintenance" {
		t.Errorf("decision_comment = %q, want the rejection reason", updated.DecisionComment)
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		date    string
		start   string
		actor   model.Actor
		wantErr string
	}{
		{"requester cancels approved future booking", model.StatusApproved, "2024-06-02", "09:00", studentActor, ""},
		{"non-requester forbidden", model.StatusPending, "2024-06-02", "09:00", facultyActor, engine.CodeForbidden},
		{"approved booking already started", model.StatusApproved, "2024-06-01", "07:00", studentActor, engine.CodeAlreadyElapsed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
				return &model.Booking{
					ID:          id,
					MachineID:   testMachineID,
					RequesterID: "student-1",
					Date:        tc.date,
					StartTime:   tc.start,
					EndTime:     "10:00",
					Status:      tc.status,
				}, nil
			}

			updated, err := f.service.Cancel(context.Background(), testBookingID, tc.actor)
			if tc.wantErr != "" {
				if code := errorCode(t, err); code != tc.wantErr {
					t.Fatalf("error code = %s, want %s", code, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel() failed: %v", err)
			}
			if updated.Status != model.StatusCancelled {
				t.Errorf("status = %s, want cancelled", updated.Status)
			}
		})
	}
}

func TestGetByID_OwnershipCheck(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, RequesterID: "student-2", Status: model.StatusPending}, nil
	}

	_, err := f.service.GetByID(context.Background(), testBookingID, studentActor)
	if code := errorCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}

	if _, err := f.service.GetByID(context.Background(), testBookingID, facultyActor); err != nil {
		t.Fatalf("faculty should see any booking, got: %v", err)
	}
}

func TestGetAll_RequiresFacultyRank(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.GetAll(context.Background(), studentActor, 10, 0)
	if code := errorCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Search(context.Background(), "", "2024-06-02")
	if code := errorCode(t, err); code != apperrors.CodeInvalidInput {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidInput)
	}

	_, err = f.service.Search(context.Background(), testMachineID, "June 2nd")
	if code := errorCode(t, err); code != apperrors.CodeInvalidInput {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidInput)
	}
}

var _ repository.BookingRepository = (*mockBookingRepository)(nil)
var _ repository.BookingLockRepository = (*mockLockRepository)(nil)
var _ repository.MachineFinder = (*mockMachineFinder)(nil)
