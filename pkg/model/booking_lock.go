package model

import "time"

// BookingLock is an advisory lock held while a submission for a
// machine/date slot is being overlap-checked. The unique _id insert is
// what serializes concurrent submissions for the same slot.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
