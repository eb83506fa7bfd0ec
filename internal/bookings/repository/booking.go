package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	mongotx "tourbook/pkg/db/mongo"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Cancellation is the state written by a successful cancel. PriorPaymentStatus
// guards against a payment landing between the read and the write.
type Cancellation struct {
	Reason             string
	RefundAmount       float64
	PaymentStatus      string
	PriorPaymentStatus string
	At                 time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByCustomer(ctx context.Context, customerRef string, limit int, offset int64) ([]*model.Booking, error)
	CountByCustomer(ctx context.Context, customerRef string) (int64, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, status string) (int64, error)
	TransitionStatus(ctx context.Context, id, from, to string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, c Cancellation) (*model.Booking, error)
	MarkPaid(ctx context.Context, id string, payment model.PaymentDetails) (*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	clock      clock.Clock
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config, clk clock.Clock) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		clock:      clk,
		collection: db.Collection(CollectionName),
	}
}

// NewBookingID allocates an id before the booking is stored, so reservation
// holds can be tagged with it.
func NewBookingID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) error {
	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = NewBookingID()
	}
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByCustomer(ctx context.Context, customerRef string, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{"customer_ref": customerRef}, limit, offset)
}

func (r *mongoBookingRepository) CountByCustomer(ctx context.Context, customerRef string) (int64, error) {
	return r.count(ctx, bson.M{"customer_ref": customerRef})
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, statusFilter(status), limit, offset)
}

func (r *mongoBookingRepository) Count(ctx context.Context, status string) (int64, error) {
	return r.count(ctx, statusFilter(status))
}

func statusFilter(status string) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) TransitionStatus(ctx context.Context, id, from, to string) (*model.Booking, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": r.clock.Now()}}
	return r.compareAndSet(ctx, id, filter, update)
}

func (r *mongoBookingRepository) Cancel(ctx context.Context, id string, c Cancellation) (*model.Booking, error) {
	filter := bson.M{
		"_id":            id,
		"status":         bson.M{"$in": []string{model.BookingPending, model.BookingConfirmed}},
		"payment_status": c.PriorPaymentStatus,
	}
	update := bson.M{"$set": bson.M{
		"status":              model.BookingCancelled,
		"payment_status":      c.PaymentStatus,
		"cancellation_reason": c.Reason,
		"refund_amount":       c.RefundAmount,
		"cancelled_at":        c.At,
		"updated_at":          c.At,
	}}
	return r.compareAndSet(ctx, id, filter, update)
}

func (r *mongoBookingRepository) MarkPaid(ctx context.Context, id string, payment model.PaymentDetails) (*model.Booking, error) {
	filter := bson.M{
		"_id":            id,
		"status":         bson.M{"$ne": model.BookingCancelled},
		"payment_status": bson.M{"$ne": model.PaymentCompleted},
	}
	update := bson.M{"$set": bson.M{
		"payment_status": model.PaymentCompleted,
		"payment":        payment,
		"updated_at":     payment.PaidAt,
	}}
	return r.compareAndSet(ctx, id, filter, update)
}

// compareAndSet applies update only when filter still matches. A miss is
// reported as ErrStatusChanged; callers reload to tell a lost race from a
// missing booking.
func (r *mongoBookingRepository) compareAndSet(ctx context.Context, id string, filter, update bson.M) (*model.Booking, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking model.Booking
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return &booking, nil
}
