package payments

import (
	"context"
	"errors"
	"testing"
	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	apperrors "tourbook/pkg/errors"
)

type mockMarker struct {
	markPaidFunc func(ctx context.Context, id, paymentRef, method string) (*model.Booking, error)
}

func (m *mockMarker) MarkPaid(ctx context.Context, id, paymentRef, method string) (*model.Booking, error) {
	return m.markPaidFunc(ctx, id, paymentRef, method)
}

func message(t *testing.T, key string, value any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey(key).WithValue(value).WithEventType(EventPaymentConfirmed).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return msg
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name      string
		msg       func(t *testing.T) kafka.Message
		markErr   error
		wantErr   bool
		wantType  kafka.ErrorType
		wantCalls int
	}{
		{
			name: "applies confirmation",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{BookingID: "b1", PaymentRef: "pay_1", PaymentMethod: "card"})
			},
			wantCalls: 1,
		},
		{
			name: "booking id falls back to the key",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{PaymentRef: "pay_1"})
			},
			wantCalls: 1,
		},
		{
			name: "garbage payload",
			msg: func(t *testing.T) kafka.Message {
				return kafka.Message{Key: "b1", Value: []byte("{not json"), Headers: map[string]string{}}
			},
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name: "missing payment ref",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{BookingID: "b1"})
			},
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name: "unknown booking",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{BookingID: "b1", PaymentRef: "pay_1"})
			},
			markErr:   apperrors.NotFoundWithID("Booking", "b1"),
			wantErr:   true,
			wantType:  kafka.ErrorTypePermanent,
			wantCalls: 1,
		},
		{
			name: "cancelled booking",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{BookingID: "b1", PaymentRef: "pay_1"})
			},
			markErr:   apperrors.InvalidState("cancelled"),
			wantErr:   true,
			wantType:  kafka.ErrorTypePermanent,
			wantCalls: 1,
		},
		{
			name: "storage failure is retried",
			msg: func(t *testing.T) kafka.Message {
				return message(t, "b1", Confirmation{BookingID: "b1", PaymentRef: "pay_1"})
			},
			markErr:   apperrors.Internal("Failed to record payment", errors.New("no primary")),
			wantErr:   true,
			wantType:  kafka.ErrorTypeTransient,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			marker := &mockMarker{markPaidFunc: func(_ context.Context, id, ref, method string) (*model.Booking, error) {
				calls++
				if id != "b1" || ref != "pay_1" {
					t.Errorf("MarkPaid called with %q, %q", id, ref)
				}
				if tt.markErr != nil {
					return nil, tt.markErr
				}
				return &model.Booking{ID: id, PaymentStatus: model.PaymentCompleted}, nil
			}}

			err := NewHandler(marker, logger.Discard()).Handle(context.Background(), tt.msg(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && kafka.ClassifyError(err) != tt.wantType {
				t.Errorf("ClassifyError() = %v, want %v", kafka.ClassifyError(err), tt.wantType)
			}
			if calls != tt.wantCalls {
				t.Errorf("MarkPaid calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
