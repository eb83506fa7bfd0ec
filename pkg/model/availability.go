package model

import (
	"time"
)

const (
	AvailabilityAvailable = "available"
	AvailabilityLimited   = "limited"
	AvailabilityBooked    = "booked"
)

type AvailabilityRecord struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty"`
	ResourceKey    string    `json:"resource_key" bson:"resource_key"`
	Date           time.Time `json:"date" bson:"date"`
	Status         string    `json:"status" bson:"status"`
	Capacity       *int      `json:"capacity,omitempty" bson:"capacity,omitempty"`
	ReservationRef string    `json:"reservation_ref,omitempty" bson:"reservation_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// IsHeld reports whether the day blocks a new reservation. A limited day still
// has slots left and can be claimed.
func (r *AvailabilityRecord) IsHeld() bool {
	return r != nil && r.Status == AvailabilityBooked
}

type AvailabilityCheck struct {
	ResourceKey      string   `json:"resource_key"`
	IsAvailable      bool     `json:"is_available"`
	UnavailableDates []string `json:"unavailable_dates"`
}

type RoomRangeRequest struct {
	HotelID  string `json:"hotel_id" validate:"required,max=64,excludes=:"`
	RoomID   string `json:"room_id" validate:"required,max=64,excludes=:"`
	CheckIn  Day    `json:"check_in" validate:"required"`
	CheckOut Day    `json:"check_out" validate:"required"`
}

type SetAvailabilityRequest struct {
	ResourceKey    string `json:"resource_key,omitempty" validate:"omitempty,resource_key"`
	TourID         string `json:"tour_id,omitempty" validate:"omitempty,max=64,excludes=:"`
	Date           string `json:"date" validate:"required,day"`
	Status         string `json:"status" validate:"required,oneof=available limited booked"`
	SlotsAvailable *int   `json:"slots_available,omitempty" validate:"omitempty,min=0,max=10000"`
}

// Key resolves the resource the request targets. An explicit resource key wins
// over a tour id.
func (r *SetAvailabilityRequest) Key() string {
	if r.ResourceKey != "" {
		return r.ResourceKey
	}
	return TourResource(r.TourID)
}

type CalendarQuery struct {
	ResourceKey string `validate:"required,resource_key"`
	Year        int    `validate:"min=1970,max=9999"`
	Month       int    `validate:"min=1,max=12"`
}

type CalendarView struct {
	ResourceKey string            `json:"resource_key"`
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	Days        map[string]string `json:"days"`
}
