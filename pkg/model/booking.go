package model

import (
	"time"
)

// Booking statuses. Pending and approved bookings occupy their time
// slot; rejected and cancelled bookings release it.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// NonTerminalStatuses are the statuses that still block a slot.
var NonTerminalStatuses = []string{StatusPending, StatusApproved}

type Booking struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	MachineID       string    `json:"machine_id" bson:"machine_id" validate:"required,mongodb"`
	RequesterID     string    `json:"requester_id" bson:"requester_id" validate:"required"`
	Date            string    `json:"date" bson:"date" validate:"required,booking_date"`
	StartTime       string    `json:"start_time" bson:"start_time" validate:"required,slot_time"`
	EndTime         string    `json:"end_time" bson:"end_time" validate:"required,slot_time"`
	Purpose         string    `json:"purpose" bson:"purpose" validate:"required,max=500"`
	Status          string    `json:"status" bson:"status" validate:"required,oneof=pending approved rejected cancelled"`
	DecisionComment string    `json:"decision_comment,omitempty" bson:"decision_comment,omitempty" validate:"omitempty,max=1000"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// Occupies reports whether the booking still blocks its time slot.
func (b *Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}
