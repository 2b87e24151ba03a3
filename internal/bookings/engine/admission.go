package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"labbook/pkg/model"
)

// Admission codes. Every submission decision is one of these; callers
// render a user-facing message per code rather than parsing errors.
const (
	Admitted              = "ADMITTED"
	CodeResourceUnavail   = "RESOURCE_UNAVAILABLE"
	CodeInvalidWindow     = "INVALID_WINDOW"
	CodeDurationExceeded  = "DURATION_EXCEEDED"
	CodeDateInPast        = "DATE_IN_PAST"
	CodeTooFarInAdvance   = "TOO_FAR_IN_ADVANCE"
	CodeSlotAlreadyPassed = "SLOT_ALREADY_PASSED"
	CodePurposeRequired   = "PURPOSE_REQUIRED"
	CodePurposeTooLong    = "PURPOSE_TOO_LONG"
	CodeSlotConflict      = "SLOT_CONFLICT"
)

const maxPurposeLength = 500

// Config carries the admission limits. Both are deployment-tunable; the
// engine itself holds no state.
type Config struct {
	MaxDuration    time.Duration
	MaxAdvanceDays int
}

// AdmissionResult is the outcome of a single admission decision. When
// the code is SLOT_CONFLICT, ConflictingID names the booking that
// already holds the slot.
type AdmissionResult struct {
	Code          string `json:"code"`
	Message       string `json:"message,omitempty"`
	ConflictingID string `json:"conflicting_id,omitempty"`
}

// Admitted reports whether the candidate may enter status pending.
func (r AdmissionResult) Admitted() bool {
	return r.Code == Admitted
}

func admitted() AdmissionResult {
	return AdmissionResult{Code: Admitted}
}

func rejected(code, message string) AdmissionResult {
	return AdmissionResult{Code: code, Message: message}
}

// CanAdmit decides whether candidate may be persisted as a pending
// booking. It is a pure function of its inputs: the machine, the
// caller-fetched snapshot of non-terminal bookings for that machine and
// date, and the injected clock. Checks run cheapest-first and stop at
// the first violation, so resource-local validation is reported before
// any conflict with the snapshot.
//
// The snapshot must be read and the insert committed atomically at the
// storage layer, or two concurrent submissions can both pass the
// overlap scan. See the bookings service for the lock-and-transaction
// wiring that closes this race.
func CanAdmit(candidate *model.Booking, machine *model.Machine, existing []*model.Booking, now time.Time, cfg Config) AdmissionResult {
	if machine == nil || !machine.IsActive {
		return rejected(CodeResourceUnavail, "machine is not available for booking")
	}

	start, startOK := ParseSlotTime(candidate.StartTime)
	end, endOK := ParseSlotTime(candidate.EndTime)
	if !startOK || !endOK || start >= end {
		return rejected(CodeInvalidWindow, "start time must be before end time")
	}

	duration := time.Duration(end-start) * time.Minute
	if duration > cfg.MaxDuration {
		return rejected(CodeDurationExceeded,
			fmt.Sprintf("booking duration cannot exceed %s", cfg.MaxDuration))
	}

	date, dateOK := ParseDate(candidate.Date, now.Location())
	today := startOfDay(now)
	if !dateOK || date.Before(today) {
		return rejected(CodeDateInPast, "booking date cannot be in the past")
	}
	if date.After(today.AddDate(0, 0, cfg.MaxAdvanceDays)) {
		return rejected(CodeTooFarInAdvance,
			fmt.Sprintf("bookings can be made at most %d days in advance", cfg.MaxAdvanceDays))
	}

	if date.Equal(today) && start <= minutesOfDay(now) {
		return rejected(CodeSlotAlreadyPassed, "start time has already passed")
	}

	purpose := strings.TrimSpace(candidate.Purpose)
	if purpose == "" {
		return rejected(CodePurposeRequired, "purpose is required")
	}
	if utf8.RuneCountInString(purpose) > maxPurposeLength {
		return rejected(CodePurposeTooLong,
			fmt.Sprintf("purpose cannot exceed %d characters", maxPurposeLength))
	}

	for _, b := range existing {
		if !b.Occupies() {
			continue
		}
		existingStart, ok := ParseSlotTime(b.StartTime)
		if !ok {
			continue
		}
		existingEnd, ok := ParseSlotTime(b.EndTime)
		if !ok {
			continue
		}
		// Half-open intervals: [start,end) and [existingStart,existingEnd).
		if start < existingEnd && existingStart < end {
			return AdmissionResult{
				Code:          CodeSlotConflict,
				Message:       "time slot is already booked",
				ConflictingID: b.ID,
			}
		}
	}

	return admitted()
}
