package validator

import (
	"errors"
	"testing"
	"time"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

func TestValidateRoomRange(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())
	checkIn := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	day := func(offset int) model.Day { return model.DayOf(checkIn.AddDate(0, 0, offset)) }

	tests := []struct {
		name    string
		req     model.RoomRangeRequest
		wantErr bool
	}{
		{
			name: "valid stay",
			req:  model.RoomRangeRequest{HotelID: "h1", RoomID: "r1", CheckIn: day(0), CheckOut: day(2)},
		},
		{
			name:    "missing hotel",
			req:     model.RoomRangeRequest{RoomID: "r1", CheckIn: day(0), CheckOut: day(2)},
			wantErr: true,
		},
		{
			name:    "separator in hotel id",
			req:     model.RoomRangeRequest{HotelID: "grand:101", RoomID: "a", CheckIn: day(0), CheckOut: day(2)},
			wantErr: true,
		},
		{
			name:    "separator in room id",
			req:     model.RoomRangeRequest{HotelID: "grand", RoomID: "101:a", CheckIn: day(0), CheckOut: day(2)},
			wantErr: true,
		},
		{
			name:    "check out equals check in",
			req:     model.RoomRangeRequest{HotelID: "h1", RoomID: "r1", CheckIn: day(0), CheckOut: day(0)},
			wantErr: true,
		},
		{
			name:    "inverted stay",
			req:     model.RoomRangeRequest{HotelID: "h1", RoomID: "r1", CheckIn: day(0), CheckOut: day(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRoomRange(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRoomRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) || len(verrs) == 0 {
					t.Errorf("expected ValidationErrors, got %T", err)
				}
			}
		})
	}
}

func TestValidateSetStatus(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())
	slots := 4

	tests := []struct {
		name    string
		req     model.SetAvailabilityRequest
		wantErr bool
	}{
		{name: "tour id", req: model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-20", Status: "booked"}},
		{name: "resource key", req: model.SetAvailabilityRequest{ResourceKey: "room:h1:r1", Date: "2024-12-20", Status: "available"}},
		{name: "limited with slots", req: model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-20", Status: "limited", SlotsAvailable: &slots}},
		{name: "both keys", req: model.SetAvailabilityRequest{TourID: "t1", ResourceKey: "tour:t1", Date: "2024-12-20", Status: "booked"}, wantErr: true},
		{name: "no key", req: model.SetAvailabilityRequest{Date: "2024-12-20", Status: "booked"}, wantErr: true},
		{name: "bad resource key", req: model.SetAvailabilityRequest{ResourceKey: "boat:1", Date: "2024-12-20", Status: "booked"}, wantErr: true},
		{name: "separator in tour id", req: model.SetAvailabilityRequest{TourID: "t:1", Date: "2024-12-20", Status: "booked"}, wantErr: true},
		{name: "room key with extra segment", req: model.SetAvailabilityRequest{ResourceKey: "room:grand:101:a", Date: "2024-12-20", Status: "booked"}, wantErr: true},
		{name: "bad date", req: model.SetAvailabilityRequest{TourID: "t1", Date: "20/12/2024", Status: "booked"}, wantErr: true},
		{name: "bad status", req: model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-20", Status: "closed"}, wantErr: true},
		{name: "slots without limited", req: model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-20", Status: "booked", SlotsAvailable: &slots}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSetStatus(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSetStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCalendarQuery(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())

	tests := []struct {
		name    string
		query   model.CalendarQuery
		wantErr bool
	}{
		{name: "valid", query: model.CalendarQuery{ResourceKey: "tour:t1", Year: 2024, Month: 12}},
		{name: "month zero", query: model.CalendarQuery{ResourceKey: "tour:t1", Year: 2024, Month: 0}, wantErr: true},
		{name: "month thirteen", query: model.CalendarQuery{ResourceKey: "tour:t1", Year: 2024, Month: 13}, wantErr: true},
		{name: "year too small", query: model.CalendarQuery{ResourceKey: "tour:t1", Year: 1969, Month: 1}, wantErr: true},
		{name: "missing key", query: model.CalendarQuery{Year: 2024, Month: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCalendarQuery(&tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCalendarQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
