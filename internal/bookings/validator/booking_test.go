package validator

import (
	"errors"
	"testing"
	"time"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

func TestValidateCreate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())
	today := time.Date(2024, 12, 1, 15, 30, 0, 0, time.UTC)
	day := func(offset int) model.Day { return model.DayOf(today.AddDate(0, 0, offset)) }

	valid := func() model.CreateBookingRequest {
		return model.CreateBookingRequest{
			TourID:         "tour-1",
			BookingDate:    day(19),
			NumberOfPeople: model.PartyComposition{Adults: 2, Children: 1},
			HotelBooking: &model.HotelBookingRequest{
				HotelID:      "h1",
				RoomID:       "r1",
				CheckIn:      day(19),
				CheckOut:     day(22),
				NightlyPrice: 50,
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(r *model.CreateBookingRequest)
		wantField string
	}{
		{name: "valid request", mutate: func(r *model.CreateBookingRequest) {}},
		{name: "no hotel", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking = nil }},
		{name: "booking today", mutate: func(r *model.CreateBookingRequest) { r.BookingDate = day(0) }},
		{name: "missing tour", mutate: func(r *model.CreateBookingRequest) { r.TourID = "" }, wantField: "TourID"},
		{name: "missing date", mutate: func(r *model.CreateBookingRequest) { r.BookingDate = model.Day{} }, wantField: "BookingDate"},
		{name: "date in the past", mutate: func(r *model.CreateBookingRequest) { r.BookingDate = day(-1) }, wantField: "BookingDate"},
		{name: "no adults", mutate: func(r *model.CreateBookingRequest) { r.NumberOfPeople.Adults = 0 }, wantField: "Adults"},
		{name: "negative children", mutate: func(r *model.CreateBookingRequest) { r.NumberOfPeople.Children = -1 }, wantField: "Children"},
		{name: "hotel without room", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.RoomID = "" }, wantField: "RoomID"},
		{name: "separator in hotel id", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.HotelID = "grand:101" }, wantField: "HotelID"},
		{name: "separator in room id", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.RoomID = "101:a" }, wantField: "RoomID"},
		{name: "separator in tour id", mutate: func(r *model.CreateBookingRequest) { r.TourID = "tour:1" }, wantField: "TourID"},
		{name: "negative nightly price", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.NightlyPrice = -1 }, wantField: "NightlyPrice"},
		{name: "check out equals check in", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.CheckOut = day(19) }, wantField: "CheckOut"},
		{name: "inverted stay", mutate: func(r *model.CreateBookingRequest) { r.HotelBooking.CheckOut = day(18) }, wantField: "CheckOut"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			err := v.ValidateCreate(&req, today)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateCreate() unexpected error = %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidateCreate_ReportsAllViolations(t *testing.T) {
	v := NewBookingValidator(logger.Discard())
	today := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	req := model.CreateBookingRequest{
		BookingDate:    model.DayOf(today.AddDate(0, 0, -3)),
		NumberOfPeople: model.PartyComposition{Adults: 0},
	}

	err := v.ValidateCreate(&req, today)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 violations (tour, adults, past date), got %d: %v", len(verrs), verrs)
	}
}

func TestValidateStatusUpdate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		status  string
		wantErr bool
	}{
		{model.BookingConfirmed, false},
		{model.BookingCompleted, false},
		{model.BookingCancelled, false},
		{"", true},
		{"archived", true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			err := v.ValidateStatusUpdate(&model.StatusUpdateRequest{Status: tt.status})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStatusUpdate(%q) error = %v, wantErr %v", tt.status, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMarkPaid(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateMarkPaid(&model.MarkPaidRequest{PaymentRef: "pay_123", PaymentMethod: "card"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateMarkPaid(&model.MarkPaidRequest{}); err == nil {
		t.Error("expected an error for a missing payment_ref")
	}
}
