package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	bookingserrors "tourbook/internal/bookings/errors"
)

func TestHTTPTourCatalog_FindActive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/tours/active":
			_, _ = w.Write([]byte(`{"data":{"id":"active","title":"Old Town","price":100,"is_active":true}}`))
		case "/api/v1/tours/retired":
			_, _ = w.Write([]byte(`{"data":{"id":"retired","title":"Gone","price":80,"is_active":false}}`))
		case "/api/v1/tours/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"INTERNAL_ERROR","message":"boom"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"tour not found"}`))
		}
	}))
	defer server.Close()

	catalog := NewHTTPTourCatalog(server.URL)

	tests := []struct {
		name      string
		tourID    string
		wantErr   error
		wantPrice float64
	}{
		{name: "active", tourID: "active", wantPrice: 100},
		{name: "inactive", tourID: "retired", wantErr: bookingserrors.ErrTourNotFound},
		{name: "missing", tourID: "nope", wantErr: bookingserrors.ErrTourNotFound},
		{name: "server error", tourID: "broken", wantErr: bookingserrors.ErrTourUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour, err := catalog.FindActive(context.Background(), tt.tourID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tour.Price != tt.wantPrice {
				t.Errorf("price = %v, want %v", tour.Price, tt.wantPrice)
			}
		})
	}
}
