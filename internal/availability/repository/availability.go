package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	availabilityerrors "tourbook/internal/availability/errors"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	mongotx "tourbook/pkg/db/mongo"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability"

	// A claim that loses a duplicate-key race is re-run so the conflict list
	// is read back from committed state.
	maxClaimAttempts = 3
)

var errClaimRace = errors.New("concurrent claim on the same day")

type AvailabilityRepository interface {
	GetRange(ctx context.Context, resourceKey string, from, to time.Time) ([]*model.AvailabilityRecord, error)
	ReserveRange(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error
	ReleaseRange(ctx context.Context, resourceKey string, dates []time.Time) error
	ReleaseHeldBy(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error
	FindByReservation(ctx context.Context, bookingRef string) ([]*model.AvailabilityRecord, error)
	SetStatus(ctx context.Context, resourceKey string, date time.Time, status string, capacity *int) (*model.AvailabilityRecord, error)
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
	clock      clock.Clock
}

func NewMongoAvailabilityRepository(cfg *config.Config, clk clock.Clock) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, mongotx.WithMaxCommitTime(cfg.WriteTimeout)),
		clock:      clk,
	}
}

func (r *mongoAvailabilityRepository) GetRange(ctx context.Context, resourceKey string, from, to time.Time) ([]*model.AvailabilityRecord, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_key": resourceKey,
		"date": bson.M{
			"$gte": daterange.Normalize(from),
			"$lte": daterange.Normalize(to),
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.AvailabilityRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode availability records: %w", err)
	}
	return normalizeRecords(records), nil
}

// ReserveRange claims every day or none. The read of held days and the
// conditional upserts share one transaction; the unique (resource_key, date)
// index turns a concurrent insert of the same day into a duplicate key.
func (r *mongoAvailabilityRepository) ReserveRange(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	days := daterange.Unique(dates)
	if len(days) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			return r.claim(sessCtx, resourceKey, days, bookingRef)
		})
		if errors.Is(err, errClaimRace) {
			lastErr = err
			continue
		}
		return err
	}

	return fmt.Errorf("failed to reserve %s after %d attempts: %w", resourceKey, maxClaimAttempts, lastErr)
}

func (r *mongoAvailabilityRepository) claim(ctx mongo.SessionContext, resourceKey string, days []time.Time, bookingRef string) error {
	held, err := r.heldDays(ctx, resourceKey, days)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		return &availabilityerrors.ConflictError{ResourceKey: resourceKey, Dates: held}
	}

	now := r.clock.Now()
	for _, d := range days {
		filter := bson.M{
			"resource_key": resourceKey,
			"date":         d,
			"status":       bson.M{"$ne": model.AvailabilityBooked},
		}
		update := bson.M{
			"$set": bson.M{
				"status":          model.AvailabilityBooked,
				"reservation_ref": bookingRef,
				"updated_at":      now,
			},
			"$unset":       bson.M{"capacity": ""},
			"$setOnInsert": bson.M{"created_at": now},
		}

		if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errClaimRace
			}
			return fmt.Errorf("failed to claim %s on %s: %w", resourceKey, daterange.Format(d), err)
		}
	}
	return nil
}

func (r *mongoAvailabilityRepository) heldDays(ctx context.Context, resourceKey string, days []time.Time) ([]time.Time, error) {
	filter := bson.M{
		"resource_key": resourceKey,
		"date":         bson.M{"$in": days},
		"status":       model.AvailabilityBooked,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetProjection(bson.M{"date": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read held days: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.AvailabilityRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode held days: %w", err)
	}

	held := make([]time.Time, 0, len(records))
	for _, rec := range records {
		held = append(held, daterange.Normalize(rec.Date))
	}
	return held, nil
}

func (r *mongoAvailabilityRepository) ReleaseRange(ctx context.Context, resourceKey string, dates []time.Time) error {
	return r.release(ctx, bson.M{
		"resource_key": resourceKey,
		"date":         bson.M{"$in": daterange.Unique(dates)},
	})
}

func (r *mongoAvailabilityRepository) ReleaseHeldBy(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	return r.release(ctx, bson.M{
		"resource_key":    resourceKey,
		"date":            bson.M{"$in": daterange.Unique(dates)},
		"reservation_ref": bookingRef,
	})
}

func (r *mongoAvailabilityRepository) release(ctx context.Context, filter bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"status": model.AvailabilityAvailable, "updated_at": r.clock.Now()},
		"$unset": bson.M{"reservation_ref": "", "capacity": ""},
	}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release availability: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindByReservation(ctx context.Context, bookingRef string) ([]*model.AvailabilityRecord, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "resource_key", Value: 1}, {Key: "date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"reservation_ref": bookingRef}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation %s: %w", bookingRef, err)
	}
	defer cursor.Close(ctx)

	var records []*model.AvailabilityRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode reservation records: %w", err)
	}
	return normalizeRecords(records), nil
}

func (r *mongoAvailabilityRepository) SetStatus(ctx context.Context, resourceKey string, date time.Time, status string, capacity *int) (*model.AvailabilityRecord, error) {
	if err := checkStatus(status, capacity); err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := r.clock.Now()
	set := bson.M{"status": status, "updated_at": now}
	unset := bson.M{}

	switch status {
	case model.AvailabilityLimited:
		unset["reservation_ref"] = ""
		if capacity != nil {
			set["capacity"] = *capacity
		} else {
			unset["capacity"] = ""
		}
	case model.AvailabilityAvailable:
		unset["reservation_ref"] = ""
		unset["capacity"] = ""
	case model.AvailabilityBooked:
		unset["capacity"] = ""
	}

	update := bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := bson.M{"resource_key": resourceKey, "date": daterange.Normalize(date)}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record model.AvailabilityRecord
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to set availability status: %w", err)
	}
	record.Date = daterange.Normalize(record.Date)
	return &record, nil
}

func checkStatus(status string, capacity *int) error {
	switch status {
	case model.AvailabilityAvailable, model.AvailabilityBooked:
		if capacity != nil {
			return availabilityerrors.ErrCapacityWithoutLimited
		}
	case model.AvailabilityLimited:
	default:
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidStatus, status)
	}
	return nil
}

func normalizeRecords(records []*model.AvailabilityRecord) []*model.AvailabilityRecord {
	for _, rec := range records {
		rec.Date = daterange.Normalize(rec.Date)
	}
	return records
}
