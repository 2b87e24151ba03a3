package engine

import (
	"strings"
	"testing"
	"time"

	"labbook/pkg/model"
)

var testConfig = Config{
	MaxDuration:    8 * time.Hour,
	MaxAdvanceDays: 30,
}

// 2024-06-01 08:00 local time.
var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func activeMachine() *model.Machine {
	return &model.Machine{ID: "665a1b2c3d4e5f6a7b8c9d0e", Name: "CNC Mill", IsActive: true}
}

func candidate(date, start, end string) *model.Booking {
	return &model.Booking{
		MachineID:   "665a1b2c3d4e5f6a7b8c9d0e",
		RequesterID: "student-1",
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Purpose:     "Milling practice",
	}
}

func existing(id, date, start, end, status string) *model.Booking {
	return &model.Booking{
		ID:          id,
		MachineID:   "665a1b2c3d4e5f6a7b8c9d0e",
		RequesterID: "student-2",
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Purpose:     "Earlier booking",
		Status:      status,
	}
}

func TestCanAdmit_ValidationOrder(t *testing.T) {
	longPurpose := make([]byte, 501)
	for i := range longPurpose {
		longPurpose[i] = 'x'
	}

	tests := []struct {
		name     string
		modify   func(c *model.Booking, m *model.Machine)
		existing []*model.Booking
		want     string
	}{
		{
			name:   "admits a clean candidate",
			modify: func(c *model.Booking, m *model.Machine) {},
			want:   Admitted,
		},
		{
			name:   "inactive machine",
			modify: func(c *model.Booking, m *model.Machine) { m.IsActive = false },
			want:   CodeResourceUnavail,
		},
		{
			name:   "start equal to end",
			modify: func(c *model.Booking, m *model.Machine) { c.EndTime = c.StartTime },
			want:   CodeInvalidWindow,
		},
		{
			name:   "start after end",
			modify: func(c *model.Booking, m *model.Machine) { c.StartTime = "11:00"; c.EndTime = "10:00" },
			want:   CodeInvalidWindow,
		},
		{
			name:   "unparsable start time",
			modify: func(c *model.Booking, m *model.Machine) { c.StartTime = "9am" },
			want:   CodeInvalidWindow,
		},
		{
			name:   "duration over the maximum",
			modify: func(c *model.Booking, m *model.Machine) { c.StartTime = "08:00"; c.EndTime = "16:30" },
			want:   CodeDurationExceeded,
		},
		{
			name:   "date in the past",
			modify: func(c *model.Booking, m *model.Machine) { c.Date = "2024-05-31" },
			want:   CodeDateInPast,
		},
		{
			name:   "date beyond the advance window",
			modify: func(c *model.Booking, m *model.Machine) { c.Date = "2024-07-02" },
			want:   CodeTooFarInAdvance,
		},
		{
			name:   "date exactly at the advance limit",
			modify: func(c *model.Booking, m *model.Machine) { c.Date = "2024-07-01" },
			want:   Admitted,
		},
		{
			name:   "empty purpose",
			modify: func(c *model.Booking, m *model.Machine) { c.Purpose = "   " },
			want:   CodePurposeRequired,
		},
		{
			name:   "purpose over the limit",
			modify: func(c *model.Booking, m *model.Machine) { c.Purpose = string(longPurpose) },
			want:   CodePurposeTooLong,
		},
		{
			name:   "multibyte purpose counted in characters, not bytes",
			modify: func(c *model.Booking, m *model.Machine) { c.Purpose = strings.Repeat("実", 500) },
			want:   Admitted,
		},
		{
			name:   "multibyte purpose over the limit",
			modify: func(c *model.Booking, m *model.Machine) { c.Purpose = strings.Repeat("実", 501) },
			want:   CodePurposeTooLong,
		},
		{
			name:   "inactive machine reported before bad window",
			modify: func(c *model.Booking, m *model.Machine) { m.IsActive = false; c.EndTime = c.StartTime },
			want:   CodeResourceUnavail,
		},
		{
			name:     "bad window reported before conflict",
			modify:   func(c *model.Booking, m *model.Machine) { c.StartTime = "11:00"; c.EndTime = "10:00" },
			existing: []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusApproved)},
			want:     CodeInvalidWindow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate("2024-06-02", "09:00", "10:00")
			m := activeMachine()
			tc.modify(c, m)

			got := CanAdmit(c, m, tc.existing, testNow, testConfig)
			if got.Code != tc.want {
				t.Errorf("CanAdmit() = %s, want %s", got.Code, tc.want)
			}
		})
	}
}

func TestCanAdmit_SameDaySlotAlreadyPassed(t *testing.T) {
	// now is 08:00 on 2024-06-01.
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"start before now", "07:00", "09:00", CodeSlotAlreadyPassed},
		{"start equal to now", "08:00", "09:00", CodeSlotAlreadyPassed},
		{"start after now", "08:01", "09:00", Admitted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate("2024-06-01", tc.start, tc.end)
			got := CanAdmit(c, activeMachine(), nil, testNow, testConfig)
			if got.Code != tc.want {
				t.Errorf("CanAdmit() = %s, want %s", got.Code, tc.want)
			}
		})
	}
}

func TestCanAdmit_OverlapScan(t *testing.T) {
	tests := []struct {
		name         string
		start, end   string
		existing     []*model.Booking
		want         string
		conflictWith string
	}{
		{
			name:  "no existing bookings",
			start: "09:00", end: "10:00",
			want: Admitted,
		},
		{
			name:  "partial overlap with pending booking",
			start: "09:30", end: "10:30",
			existing:     []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusPending)},
			want:         CodeSlotConflict,
			conflictWith: "b1",
		},
		{
			name:  "contained within approved booking",
			start: "09:15", end: "09:45",
			existing:     []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusApproved)},
			want:         CodeSlotConflict,
			conflictWith: "b1",
		},
		{
			name:  "back to back slots do not overlap",
			start: "10:00", end: "11:00",
			existing: []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusApproved)},
			want:     Admitted,
		},
		{
			name:  "candidate ending at existing start does not overlap",
			start: "08:00", end: "09:00",
			existing: []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusApproved)},
			want:     Admitted,
		},
		{
			name:  "cancelled booking releases the slot",
			start: "09:00", end: "10:00",
			existing: []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusCancelled)},
			want:     Admitted,
		},
		{
			name:  "rejected booking releases the slot",
			start: "09:00", end: "10:00",
			existing: []*model.Booking{existing("b1", "2024-06-02", "09:00", "10:00", model.StatusRejected)},
			want:     Admitted,
		},
		{
			name:  "first overlap in snapshot order wins",
			start: "09:00", end: "12:00",
			existing: []*model.Booking{
				existing("b1", "2024-06-02", "09:30", "10:00", model.StatusPending),
				existing("b2", "2024-06-02", "11:00", "11:30", model.StatusApproved),
			},
			want:         CodeSlotConflict,
			conflictWith: "b1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate("2024-06-02", tc.start, tc.end)
			got := CanAdmit(c, activeMachine(), tc.existing, testNow, testConfig)
			if got.Code != tc.want {
				t.Fatalf("CanAdmit() = %s, want %s", got.Code, tc.want)
			}
			if got.ConflictingID != tc.conflictWith {
				t.Errorf("ConflictingID = %q, want %q", got.ConflictingID, tc.conflictWith)
			}
		})
	}
}

func TestCanAdmit_SequentialSubmissionScenario(t *testing.T) {
	m := activeMachine()

	first := candidate("2024-06-02", "09:00", "10:00")
	res := CanAdmit(first, m, nil, testNow, testConfig)
	if !res.Admitted() {
		t.Fatalf("first candidate should be admitted, got %s", res.Code)
	}
	first.ID = "booking-1"
	first.Status = model.StatusPending

	second := candidate("2024-06-02", "09:30", "10:30")
	res = CanAdmit(second, m, []*model.Booking{first}, testNow, testConfig)
	if res.Code != CodeSlotConflict {
		t.Fatalf("second candidate should conflict, got %s", res.Code)
	}
	if res.ConflictingID != "booking-1" {
		t.Errorf("ConflictingID = %q, want booking-1", res.ConflictingID)
	}
}

func TestCanAdmit_IsDeterministic(t *testing.T) {
	c := candidate("2024-06-02", "09:00", "10:00")
	m := activeMachine()
	snapshot := []*model.Booking{existing("b1", "2024-06-02", "09:30", "10:30", model.StatusPending)}

	first := CanAdmit(c, m, snapshot, testNow, testConfig)
	for i := 0; i < 10; i++ {
		if got := CanAdmit(c, m, snapshot, testNow, testConfig); got != first {
			t.Fatalf("CanAdmit() not deterministic: %+v vs %+v", got, first)
		}
	}
}
