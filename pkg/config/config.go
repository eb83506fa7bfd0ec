package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"tourbook/pkg/client"
	"tourbook/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	StorageDriver string

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CalendarCacheTTL time.Duration

	KafkaEnabled         bool
	NotificationTopic    string
	NotificationDLQTopic string
	PaymentTopic         string
	PaymentDLQTopic      string
	PaymentConsumerGroup string
	NotifyTimeout        time.Duration

	ReleaseSweepInterval time.Duration
	ReleaseMaxBackoff    time.Duration
	ReleaseBatchSize     int

	DefaultBookingStatus string
	TourServiceURL       string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads a .env file when one exists, then the process environment, and
// exits on invalid configuration.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		StorageDriver: strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RedisAddr:        getEnvStr(EnvRedisAddr, ""),
		RedisPassword:    getEnvStr(EnvRedisPassword, ""),
		RedisDB:          getEnvNum(EnvRedisDB, DefaultRedisDB),
		CalendarCacheTTL: getEnvDuration(EnvCalendarCacheTTL, DefaultCalendarCacheTTL),

		KafkaEnabled:         getEnvBool(EnvKafkaEnabled, false),
		NotificationTopic:    getEnvStr(EnvNotificationTopic, DefaultNotificationTopic),
		NotificationDLQTopic: getEnvStr(EnvNotificationDLQTopic, DefaultNotificationDLQTopic),
		PaymentTopic:         getEnvStr(EnvPaymentTopic, DefaultPaymentTopic),
		PaymentDLQTopic:      getEnvStr(EnvPaymentDLQTopic, DefaultPaymentDLQTopic),
		PaymentConsumerGroup: getEnvStr(EnvPaymentConsumerGroup, DefaultPaymentConsumerGroup),
		NotifyTimeout:        getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),

		ReleaseSweepInterval: getEnvDuration(EnvReleaseSweepInterval, DefaultReleaseSweepInterval),
		ReleaseMaxBackoff:    getEnvDuration(EnvReleaseMaxBackoff, DefaultReleaseMaxBackoff),
		ReleaseBatchSize:     getEnvNum(EnvReleaseBatchSize, DefaultReleaseBatchSize),

		DefaultBookingStatus: strings.ToLower(getEnvStr(EnvDefaultBookingStatus, DefaultBookingStatus)),
		TourServiceURL:       strings.TrimSuffix(getEnvStr(EnvTourServiceURL, ""), "/"),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envFileErr == nil {
		cfg.Log.Debug("Loaded environment from .env file")
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StorageDriver == StorageMongo
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the calendar cache. Redis is optional: an empty address or
// an unreachable server leaves the cache disabled.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis address not set, calendar cache disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of [%s, %s], got: %s", StorageMongo, StorageMemory, cfg.StorageDriver))
	}

	if cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.CalendarCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CalendarCacheTTL must be positive, got: %s", cfg.CalendarCacheTTL))
	}

	if cfg.KafkaEnabled {
		if cfg.NotificationTopic == "" {
			errors = append(errors, "NotificationTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PaymentTopic == "" || cfg.PaymentConsumerGroup == "" {
			errors = append(errors, "PaymentTopic and PaymentConsumerGroup cannot be empty when Kafka is enabled")
		}
	}
	if cfg.NotifyTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyTimeout must be positive, got: %s", cfg.NotifyTimeout))
	}

	if cfg.ReleaseSweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("ReleaseSweepInterval must be positive, got: %s", cfg.ReleaseSweepInterval))
	}
	if cfg.ReleaseMaxBackoff < cfg.ReleaseSweepInterval {
		errors = append(errors, fmt.Sprintf("ReleaseMaxBackoff (%s) must be >= ReleaseSweepInterval (%s)", cfg.ReleaseMaxBackoff, cfg.ReleaseSweepInterval))
	}
	if cfg.ReleaseBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("ReleaseBatchSize must be positive, got: %d", cfg.ReleaseBatchSize))
	}

	if cfg.DefaultBookingStatus != "pending" && cfg.DefaultBookingStatus != "confirmed" {
		errors = append(errors, fmt.Sprintf("DefaultBookingStatus must be pending or confirmed, got: %s", cfg.DefaultBookingStatus))
	}
	if cfg.TourServiceURL != "" && !regexp.MustCompile(`^https?://`).MatchString(cfg.TourServiceURL) {
		errors = append(errors, fmt.Sprintf("TourServiceURL must start with http:// or https://, got: %s", cfg.TourServiceURL))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"calendar_cache_ttl", cfg.CalendarCacheTTL,
		"kafka_enabled", cfg.KafkaEnabled,
		"notification_topic", cfg.NotificationTopic,
		"payment_topic", cfg.PaymentTopic,
		"payment_consumer_group", cfg.PaymentConsumerGroup,
		"release_sweep_interval", cfg.ReleaseSweepInterval,
		"release_max_backoff", cfg.ReleaseMaxBackoff,
		"default_booking_status", cfg.DefaultBookingStatus,
		"tour_service_url", cfg.TourServiceURL,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
