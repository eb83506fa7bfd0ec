package mongo

import (
	"context"
	"fmt"
	"tourbook/internal/migrations/mongo/validators"
	"tourbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	// One record per resource and day; the unique index is what makes
	// concurrent reservations of the same day collide.
	AvailabilityIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "resource_key", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("resource_day_unique"),
		},
		{
			Keys:    bson.D{{Key: "reservation_ref", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "customer_ref", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "payment.payment_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	PendingReleasesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "booking_ref", Value: 1}}},
	}

	ToursIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	}
)

// Collections maps collection names to their schema and indexes. Names match
// the repositories that read them.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		"Availability":     {Indexes: AvailabilityIndexes, Validator: validators.AvailabilityValidator},
		"Bookings":         {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		"Pending_releases": {Indexes: PendingReleasesIndexes, Validator: validators.PendingReleaseValidator},
		"Tours":            {Indexes: ToursIndexes, Validator: validators.TourValidator},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
