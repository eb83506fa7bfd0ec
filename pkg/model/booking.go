package model

import (
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

type Booking struct {
	ID                 string           `json:"id" bson:"_id"`
	CustomerRef        string           `json:"customer_ref" bson:"customer_ref"`
	TourRef            string           `json:"tour_ref" bson:"tour_ref"`
	BookingDate        time.Time        `json:"booking_date" bson:"booking_date"`
	Party              PartyComposition `json:"party" bson:"party"`
	SpecialRequests    string           `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	Hotel              *HotelSelection  `json:"hotel,omitempty" bson:"hotel,omitempty"`
	TotalAmount        float64          `json:"total_amount" bson:"total_amount"`
	Status             string           `json:"status" bson:"status"`
	PaymentStatus      string           `json:"payment_status" bson:"payment_status"`
	Payment            *PaymentDetails  `json:"payment,omitempty" bson:"payment,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	RefundAmount       float64          `json:"refund_amount" bson:"refund_amount"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" bson:"updated_at"`
}

type PartyComposition struct {
	Adults   int `json:"adults" bson:"adults" validate:"min=1,max=100"`
	Children int `json:"children" bson:"children" validate:"min=0,max=100"`
}

type HotelSelection struct {
	HotelID      string    `json:"hotel_id" bson:"hotel_id"`
	RoomID       string    `json:"room_id" bson:"room_id"`
	ResourceKey  string    `json:"resource_key" bson:"resource_key"`
	CheckIn      time.Time `json:"check_in" bson:"check_in"`
	CheckOut     time.Time `json:"check_out" bson:"check_out"`
	NightlyPrice float64   `json:"nightly_price" bson:"nightly_price"`
	Nights       int       `json:"nights" bson:"nights"`
}

type PaymentDetails struct {
	PaymentRef    string    `json:"payment_ref" bson:"payment_ref"`
	PaymentMethod string    `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	PaidAt        time.Time `json:"paid_at" bson:"paid_at"`
}

func (b *Booking) OwnedBy(customerRef string) bool {
	return customerRef != "" && b.CustomerRef == customerRef
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

type CreateBookingRequest struct {
	TourID          string               `json:"tour_id" validate:"required,max=64,excludes=:"`
	BookingDate     Day                  `json:"booking_date" validate:"required"`
	NumberOfPeople  PartyComposition     `json:"number_of_people"`
	SpecialRequests string               `json:"special_requests,omitempty" validate:"max=500"`
	HotelBooking    *HotelBookingRequest `json:"hotel_booking,omitempty" validate:"omitempty"`
}

type HotelBookingRequest struct {
	HotelID      string  `json:"hotel_id" validate:"required,max=64,excludes=:"`
	RoomID       string  `json:"room_id" validate:"required,max=64,excludes=:"`
	CheckIn      Day     `json:"check_in" validate:"required"`
	CheckOut     Day     `json:"check_out" validate:"required"`
	NightlyPrice float64 `json:"nightly_price" validate:"min=0"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,booking_status"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type MarkPaidRequest struct {
	PaymentRef    string `json:"payment_ref" validate:"required,max=128"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"max=64"`
}
