package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStorageDriver = "STORAGE_DRIVER"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvCalendarCacheTTL = "CALENDAR_CACHE_TTL"

	EnvKafkaEnabled         = "KAFKA_ENABLED"
	EnvNotificationTopic    = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic = "NOTIFICATION_DLQ_TOPIC"
	EnvPaymentTopic         = "PAYMENT_TOPIC"
	EnvPaymentDLQTopic      = "PAYMENT_DLQ_TOPIC"
	EnvPaymentConsumerGroup = "PAYMENT_CONSUMER_GROUP"
	EnvNotifyTimeout        = "NOTIFY_TIMEOUT"

	EnvReleaseSweepInterval = "RELEASE_SWEEP_INTERVAL"
	EnvReleaseMaxBackoff    = "RELEASE_MAX_BACKOFF"
	EnvReleaseBatchSize     = "RELEASE_BATCH_SIZE"

	EnvDefaultBookingStatus = "DEFAULT_BOOKING_STATUS"
	EnvTourServiceURL       = "TOUR_SERVICE_URL"
)
