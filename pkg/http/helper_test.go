package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "tourbook/pkg/errors"
)

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"defaults", "", 10, 0, false},
		{"explicit", "limit=5&offset=15", 5, 15, false},
		{"page converts to offset", "limit=20&page=3", 20, 40, false},
		{"negative offset clamps", "offset=-4", 10, 0, false},
		{"bad limit", "limit=abc", 0, 0, true},
		{"bad page", "page=0", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d", tt.wantLimit, tt.wantOffset, limit, offset)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperrors.Conflict("dates unavailable").WithDetails(map[string]any{"unavailable_dates": []string{"2024-12-21"}})

	if writeErr := WriteError(rec, err); writeErr != nil {
		t.Fatalf("unexpected write error: %v", writeErr)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unavailable_dates":["2024-12-21"]`) {
		t.Errorf("expected details in body, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	_ = WriteError(rec, errors.New("mongo: connection reset"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for plain error, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("internal cause leaked into response: %s", rec.Body.String())
	}
}
