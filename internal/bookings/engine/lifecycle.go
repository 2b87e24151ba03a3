package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"labbook/pkg/model"
)

// Lifecycle actions. The state machine has exactly four edges:
//
//	pending  --approve--> approved   (faculty or admin)
//	pending  --reject--> rejected    (faculty or admin, reason required)
//	pending  --cancel--> cancelled   (requester)
//	approved --cancel--> cancelled   (requester, start still in the future)
//
// approved, rejected and cancelled have no outgoing edges.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

// Transition error codes.
const (
	CodeForbidden         = "FORBIDDEN"
	CodeReasonRequired    = "REASON_REQUIRED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAlreadyElapsed    = "ALREADY_ELAPSED"
)

const maxReasonLength = 1000

// TransitionError is a typed rejection of a lifecycle transition.
type TransitionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func transitionErr(code, message string) *TransitionError {
	return &TransitionError{Code: code, Message: message}
}

// Transition applies a lifecycle action to a booking on behalf of an
// actor. On success it returns an updated copy; the input booking is
// never mutated. Retrying a terminal action is not treated as success:
// the caller must check current status before retrying.
func Transition(booking *model.Booking, action string, actor model.Actor, reason string, now time.Time) (*model.Booking, *TransitionError) {
	switch action {
	case ActionApprove:
		return approve(booking, actor, now)
	case ActionReject:
		return reject(booking, actor, reason, now)
	case ActionCancel:
		return cancel(booking, actor, now)
	default:
		return nil, transitionErr(CodeInvalidTransition,
			fmt.Sprintf("unknown action: %s", action))
	}
}

func approve(booking *model.Booking, actor model.Actor, now time.Time) (*model.Booking, *TransitionError) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, transitionErr(CodeForbidden, "only faculty or admins can approve bookings")
	}
	if booking.Status != model.StatusPending {
		return nil, transitionErr(CodeInvalidTransition,
			fmt.Sprintf("cannot approve a booking with status %s", booking.Status))
	}

	updated := *booking
	updated.Status = model.StatusApproved
	updated.UpdatedAt = now
	return &updated, nil
}

func reject(booking *model.Booking, actor model.Actor, reason string, now time.Time) (*model.Booking, *TransitionError) {
	if !actor.HasRank(model.RoleFaculty) {
		return nil, transitionErr(CodeForbidden, "only faculty or admins can reject bookings")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, transitionErr(CodeReasonRequired, "a rejection reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, transitionErr(CodeReasonRequired,
			fmt.Sprintf("rejection reason cannot exceed %d characters", maxReasonLength))
	}

	if booking.Status != model.StatusPending {
		return nil, transitionErr(CodeInvalidTransition,
			fmt.Sprintf("cannot reject a booking with status %s", booking.Status))
	}

	updated := *booking
	updated.Status = model.StatusRejected
	updated.DecisionComment = reason
	updated.UpdatedAt = now
	return &updated, nil
}

func cancel(booking *model.Booking, actor model.Actor, now time.Time) (*model.Booking, *TransitionError) {
	if actor.ID != booking.RequesterID {
		return nil, transitionErr(CodeForbidden, "only the requester can cancel a booking")
	}

	switch booking.Status {
	case model.StatusPending:
	case model.StatusApproved:
		// Approved bookings whose window has started are historical
		// record and stay on the books.
		start, ok := SlotStart(booking.Date, booking.StartTime, now.Location())
		if !ok || !start.After(now) {
			return nil, transitionErr(CodeAlreadyElapsed,
				"an approved booking whose start time has passed cannot be cancelled")
		}
	default:
		return nil, transitionErr(CodeInvalidTransition,
			fmt.Sprintf("cannot cancel a booking with status %s", booking.Status))
	}

	updated := *booking
	updated.Status = model.StatusCancelled
	updated.UpdatedAt = now
	return &updated, nil
}
