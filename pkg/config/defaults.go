package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "tourbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultStorageDriver = StorageMongo

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultRedisDB          = 0
	DefaultCalendarCacheTTL = 5 * time.Minute

	DefaultNotificationTopic    = "booking-events"
	DefaultNotificationDLQTopic = "booking-events-dlq"
	DefaultPaymentTopic         = "payment-confirmations"
	DefaultPaymentDLQTopic      = "payment-confirmations-dlq"
	DefaultPaymentConsumerGroup = "tourbook-payments"
	DefaultNotifyTimeout        = 5 * time.Second

	DefaultReleaseSweepInterval = 30 * time.Second
	DefaultReleaseMaxBackoff    = 10 * time.Minute
	DefaultReleaseBatchSize     = 50

	DefaultBookingStatus = "pending"
)
