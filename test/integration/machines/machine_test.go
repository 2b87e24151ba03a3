package integrationtests

import (
	"fmt"
	"os"
	"testing"
	"time"

	"labbook/pkg/client"
	"labbook/pkg/model"
)

// Runs against a live machines service. Set TEST_MACHINES_URL to point
// at it; the suite is skipped otherwise.

var (
	machines *client.MachineClient

	admin   = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	faculty = model.Actor{ID: "faculty-1", Role: model.RoleFaculty}
	student = model.Actor{ID: "student-1", Role: model.RoleStudent}
)

func TestMachines(t *testing.T) {
	serverURL := os.Getenv("TEST_MACHINES_URL")
	if serverURL == "" {
		t.Skip("TEST_MACHINES_URL not set, skipping machines integration tests")
	}

	machines = client.NewMachineClient(serverURL)

	testCreateRequiresAdmin(t)
	testCreateAndFetch(t)
	testDuplicateNameInDepartment(t)
	testUpdatePartialFields(t)
	testDeactivateHidesFromStudents(t)
}

func createMachinePayload(name string) map[string]any {
	return map[string]any{
		"name":              name,
		"description":       "Integration test machine",
		"department":        "Physics",
		"location":          "Lab 2, bench 4",
		"requires_training": true,
	}
}

func mustCreateMachine(t *testing.T, name string) *model.Machine {
	t.Helper()
	resp, err := machines.Create(createMachinePayload(name), admin)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201 creating machine, got %s", resp.ToString())
	}
	machine, err := machines.DecodeMachine(resp)
	if err != nil {
		t.Fatal(err)
	}
	return machine
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

func testCreateRequiresAdmin(t *testing.T) {
	for _, actor := range []model.Actor{student, faculty} {
		resp, err := machines.Create(createMachinePayload(uniqueName("Oscilloscope")), actor)
		if err != nil {
			t.Fatalf("create request failed: %v", err)
		}
		if resp.StatusCode != 403 {
			t.Errorf("expected 403 for %s creating machine, got %s", actor.Role, resp.ToString())
		}
	}
}

func testCreateAndFetch(t *testing.T) {
	created := mustCreateMachine(t, uniqueName("Laser Cutter"))
	if created.ID == "" {
		t.Fatal("expected machine ID to be set")
	}
	if !created.IsActive {
		t.Error("expected new machine to be active")
	}

	resp, err := machines.GetByID(created.ID, student)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 fetching machine, got %s", resp.ToString())
	}
	fetched, err := machines.DecodeMachine(resp)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != created.Name {
		t.Errorf("expected name %q, got %q", created.Name, fetched.Name)
	}
}

func testDuplicateNameInDepartment(t *testing.T) {
	name := uniqueName("3D Printer")
	mustCreateMachine(t, name)

	resp, err := machines.Create(createMachinePayload(name), admin)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Errorf("expected 409 for duplicate name in department, got %s", resp.ToString())
	}
}

func testUpdatePartialFields(t *testing.T) {
	created := mustCreateMachine(t, uniqueName("Centrifuge"))

	update := map[string]any{"location": "Lab 5, corner"}
	resp, err := machines.Update(created.ID, update, admin)
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204 updating machine, got %s", resp.ToString())
	}

	getResp, err := machines.GetByID(created.ID, admin)
	if err != nil {
		t.Fatal(err)
	}
	fetched, err := machines.DecodeMachine(getResp)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Location != "Lab 5, corner" {
		t.Errorf("expected updated location, got %q", fetched.Location)
	}
	if fetched.Department != created.Department {
		t.Errorf("expected department untouched, got %q", fetched.Department)
	}
}

func testDeactivateHidesFromStudents(t *testing.T) {
	created := mustCreateMachine(t, uniqueName("Spectrometer"))

	resp, err := machines.Deactivate(created.ID, admin)
	if err != nil {
		t.Fatalf("deactivate request failed: %v", err)
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		t.Fatalf("expected success deactivating machine, got %s", resp.ToString())
	}

	listResp, err := machines.GetAll(100, 0, student)
	if err != nil {
		t.Fatal(err)
	}
	listed, _, err := machines.DecodeMachines(listResp)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range listed {
		if m.ID == created.ID {
			t.Error("expected deactivated machine to be hidden from students")
		}
	}

	// Admins still see the retired machine.
	adminResp, err := machines.GetByID(created.ID, admin)
	if err != nil {
		t.Fatal(err)
	}
	if adminResp.StatusCode != 200 {
		t.Errorf("expected admin to still fetch deactivated machine, got %s", adminResp.ToString())
	}
}
