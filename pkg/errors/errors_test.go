package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		contains []string
	}{
		{
			name:     "without cause",
			err:      NotFound("Booking"),
			contains: []string{CodeNotFound, "Booking not found"},
		},
		{
			name:     "with cause",
			err:      Internal("Failed to update booking", fmt.Errorf("connection reset")),
			contains: []string{CodeInternal, "Failed to update booking", "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("duplicate key")
	err := Internal("insert failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the wrapped cause")
	}

	if NotFound("Machine").Unwrap() != nil {
		t.Errorf("Unwrap on an error without a cause should return nil")
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Booking"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad input", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("empty id"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("missing actor"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("approver rank required"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("slot taken"), CodeConflict, http.StatusConflict},
		{"conflict at commit", ConflictAtCommit("slot locked"), CodeConflictAtCommit, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"unavailable", Unavailable("mongo down", nil), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Booking", "665f1c2e9b1d8a0001234567")

	if err.Details["resource"] != "Booking" {
		t.Errorf("Details[resource] = %v, want Booking", err.Details["resource"])
	}
	if err.Details["id"] != "665f1c2e9b1d8a0001234567" {
		t.Errorf("Details[id] = %v, want the booking id", err.Details["id"])
	}
}

func TestToJSON_OmitsInternals(t *testing.T) {
	err := Internal("insert failed", fmt.Errorf("socket closed")).WithDetails(map[string]any{
		"machine_id": "abc",
	})

	var decoded map[string]any
	if jsonErr := json.Unmarshal(err.ToJSON(), &decoded); jsonErr != nil {
		t.Fatalf("ToJSON produced invalid JSON: %v", jsonErr)
	}

	if decoded["code"] != CodeInternal {
		t.Errorf("code = %v, want %s", decoded["code"], CodeInternal)
	}
	if _, hasStatus := decoded["HTTPStatus"]; hasStatus {
		t.Errorf("HTTP status must not be serialized")
	}
	if strings.Contains(string(err.ToJSON()), "socket closed") {
		t.Errorf("wrapped cause must not leak into the response body")
	}
}

func TestAsAppError(t *testing.T) {
	original := Conflict("slot taken")
	if got := AsAppError(original); got != original {
		t.Errorf("AsAppError should return the same *AppError unchanged")
	}

	wrapped := AsAppError(fmt.Errorf("plain error"))
	if wrapped.Code != CodeInternal {
		t.Errorf("plain errors should be wrapped as %s, got %s", CodeInternal, wrapped.Code)
	}

	if !IsAppError(original) {
		t.Errorf("IsAppError(*AppError) = false, want true")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Errorf("IsAppError(plain error) = true, want false")
	}
}
