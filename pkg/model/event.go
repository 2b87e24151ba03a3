package model

import (
	"time"

	"github.com/google/uuid"
)

// Booking event types published to the audit topic.
const (
	EventBookingCreated   = "booking.created"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the audit-trail payload emitted after a successful
// admission or status transition.
type BookingEvent struct {
	EventID    string    `json:"event_id" bson:"event_id"`
	EventType  string    `json:"event_type" bson:"event_type"`
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	MachineID  string    `json:"machine_id" bson:"machine_id"`
	ActorID    string    `json:"actor_id" bson:"actor_id"`
	ActorRole  string    `json:"actor_role" bson:"actor_role"`
	OldStatus  string    `json:"old_status,omitempty" bson:"old_status,omitempty"`
	NewStatus  string    `json:"new_status" bson:"new_status"`
	Date       string    `json:"date" bson:"date"`
	StartTime  string    `json:"start_time" bson:"start_time"`
	EndTime    string    `json:"end_time" bson:"end_time"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
}

// NewBookingEvent builds an event for a booking reaching newStatus.
func NewBookingEvent(eventType string, b *Booking, actor Actor, oldStatus string) *BookingEvent {
	return &BookingEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		BookingID:  b.ID,
		MachineID:  b.MachineID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OldStatus:  oldStatus,
		NewStatus:  b.Status,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		OccurredAt: time.Now().UTC(),
	}
}
