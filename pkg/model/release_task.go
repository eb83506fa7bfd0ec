package model

import "time"

// ReleaseTask is a compensating release that has not succeeded yet.
type ReleaseTask struct {
	ID            string      `json:"id" bson:"_id"`
	ResourceKey   string      `json:"resource_key" bson:"resource_key"`
	Dates         []time.Time `json:"dates" bson:"dates"`
	BookingRef    string      `json:"booking_ref" bson:"booking_ref"`
	Attempts      int         `json:"attempts" bson:"attempts"`
	LastError     string      `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	NextAttemptAt time.Time   `json:"next_attempt_at" bson:"next_attempt_at"`
}
