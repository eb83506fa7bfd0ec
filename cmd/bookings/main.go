package main

import (
	"context"
	"errors"
	availabilityhandler "tourbook/internal/availability/handler"
	"tourbook/internal/availability/release"
	availabilityrepo "tourbook/internal/availability/repository"
	availabilityservice "tourbook/internal/availability/service"
	availabilityvalidator "tourbook/internal/availability/validator"
	"tourbook/internal/bookings/catalog"
	"tourbook/internal/bookings/handler"
	"tourbook/internal/bookings/payments"
	"tourbook/internal/bookings/repository"
	"tourbook/internal/bookings/service"
	"tourbook/internal/bookings/validator"
	"tourbook/internal/notifications"
	"tourbook/pkg/app"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/kafka"
	kafka_config "tourbook/pkg/kafka/config"
	kafka_middleware "tourbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

type stores struct {
	availability availabilityrepo.AvailabilityRepository
	bookings     repository.BookingRepository
	releases     release.Queue
	tours        catalog.TourCatalog
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	cfg.SetRedis()

	clk := clock.System()
	st := initStores(cfg, clk)

	var cache availabilityservice.CalendarCache
	if cfg.Client.Redis != nil {
		cache = availabilityservice.NewRedisCalendarCache(cfg.Client.Redis, cfg.CalendarCacheTTL)
	}

	availabilityValidator := availabilityvalidator.NewAvailabilityValidator(cfg.Log)
	coordinator := availabilityservice.NewCoordinator(st.availability, cache, cfg)
	availabilityService := availabilityservice.NewAvailabilityService(st.availability, cache, availabilityValidator, cfg)
	calendarService := availabilityservice.NewCalendarService(st.availability, cache, availabilityValidator, cfg)

	serverApp := app.NewApplication()
	workers, stopWorkers := context.WithCancel(context.Background())

	notifier := initNotifier(cfg, serverApp)
	bookingService := service.NewBookingService(
		st.bookings,
		st.tours,
		coordinator,
		st.releases,
		notifier,
		validator.NewBookingValidator(cfg.Log),
		clk,
		cfg,
	)

	sweeper := release.NewSweeper(st.releases, coordinator, clk, cfg)
	go sweeper.Run(workers)

	consumer := initPaymentConsumer(cfg, bookingService)
	if consumer != nil {
		go func() {
			if err := consumer.Start(workers); err != nil && !errors.Is(err, context.Canceled) {
				cfg.Log.Error("Payment consumer stopped", "error", err)
			}
		}()
	}

	serverApp.OnShutdown(func(ctx context.Context) {
		stopWorkers()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				cfg.Log.Error("Failed to close payment consumer", "error", err)
			}
		}
		// One last pass so releases queued during shutdown are not left waiting for the next start.
		if released, err := sweeper.SweepOnce(ctx); err != nil {
			cfg.Log.Warn("Final release sweep incomplete", "released", released, "error", err)
		}
	})
	serverApp.OnShutdown(func(context.Context) { cfg.GracefulShutdown() })

	serverApp.SetApp(cfg,
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, calendarService, cfg.Log),
	)
	if err := serverApp.Run(context.Background()); err != nil {
		cfg.Log.Fatal("HTTP server failed", "error", err)
	}
}

func initStores(cfg *config.Config, clk clock.Clock) stores {
	var st stores
	if cfg.UsesMongo() {
		st = stores{
			availability: availabilityrepo.NewMongoAvailabilityRepository(cfg, clk),
			bookings:     repository.NewMongoBookingRepository(cfg, clk),
			releases:     release.NewMongoQueue(cfg, clk),
			tours:        catalog.NewMongoTourCatalog(cfg),
		}
	} else {
		cfg.Log.Warn("Running on in-memory storage, data is lost on restart")
		st = stores{
			availability: availabilityrepo.NewMemoryAvailabilityRepository(clk),
			bookings:     repository.NewMemoryBookingRepository(clk),
			releases:     release.NewMemoryQueue(clk),
			tours:        catalog.NewMemoryTourCatalog(),
		}
	}

	switch {
	case cfg.TourServiceURL != "":
		st.tours = catalog.NewHTTPTourCatalog(cfg.TourServiceURL)
		cfg.Log.Info("Tours resolved through the tour service", "url", cfg.TourServiceURL)
	case !cfg.UsesMongo():
		cfg.Log.Warn("In-memory tour catalog is empty, set TOUR_SERVICE_URL to resolve tours")
	}

	cfg.Log.Info("Storage initialized", "driver", cfg.StorageDriver, "database", cfg.MongoDatabaseName)
	return st
}

// initNotifier publishes booking events to Kafka when enabled and falls back to
// log-only notifications otherwise.
func initNotifier(cfg *config.Config, serverApp *app.Application) notifications.Notifier {
	if !cfg.KafkaEnabled {
		return notifications.NewLogNotifier(cfg.Log)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(func(context.Context) {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close notification producer", "error", err)
		}
	})

	return notifications.NewKafkaNotifier(producer, cfg.NotifyTimeout, cfg.Log)
}

func initPaymentConsumer(cfg *config.Config, bookings service.BookingService) *kafka.Consumer {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, payments are recorded through the admin endpoint only")
		return nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.PaymentTopic,
		cfg.PaymentConsumerGroup,
		cfg.PaymentDLQTopic,
		payments.NewHandler(bookings, cfg.Log).Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}
	return consumer
}
