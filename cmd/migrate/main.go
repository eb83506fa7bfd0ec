package main

import (
	"context"
	"time"
	mongoMigration "tourbook/internal/migrations/mongo"
	"tourbook/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	if !cfg.UsesMongo() {
		cfg.Log.Info("Storage driver is not mongo, nothing to migrate", "driver", cfg.StorageDriver)
		return
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
