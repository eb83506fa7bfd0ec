package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:             DefaultMongoURI,
		MongoDatabaseName:    DefaultMongoDatabaseName,
		MongoConnTimeout:     DefaultMongoConnTimeout,
		StorageDriver:        StorageMongo,
		Port:                 DefaultPort,
		JWTSecret:            "secret",
		RateLimitRequests:    DefaultRateLimitRequests,
		RateLimitWindow:      DefaultRateLimitWindow,
		RequestTimeout:       DefaultRequestTimeout,
		IdempotencyTTL:       DefaultIdempotencyTTL,
		MaxRequestSize:       DefaultMaxRequestSize,
		ReadTimeout:          DefaultReadTimeout,
		WriteTimeout:         DefaultWriteTimeout,
		IdleTimeout:          DefaultIdleTimeout,
		ShutdownTimeout:      DefaultShutdownTimeout,
		CalendarCacheTTL:     DefaultCalendarCacheTTL,
		NotificationTopic:    DefaultNotificationTopic,
		PaymentTopic:         DefaultPaymentTopic,
		PaymentConsumerGroup: DefaultPaymentConsumerGroup,
		NotifyTimeout:        DefaultNotifyTimeout,
		ReleaseSweepInterval: DefaultReleaseSweepInterval,
		ReleaseMaxBackoff:    DefaultReleaseMaxBackoff,
		ReleaseBatchSize:     DefaultReleaseBatchSize,
		DefaultBookingStatus: DefaultBookingStatus,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"defaults are valid", func(cfg *Config) {}, ""},
		{"memory driver skips mongo checks", func(cfg *Config) { cfg.StorageDriver = StorageMemory; cfg.MongoURI = "" }, ""},
		{"unknown driver", func(cfg *Config) { cfg.StorageDriver = "postgres" }, "StorageDriver"},
		{"bad mongo uri", func(cfg *Config) { cfg.MongoURI = "http://localhost:27017" }, "MongoURI"},
		{"missing jwt secret", func(cfg *Config) { cfg.JWTSecret = "" }, "JWTSecret"},
		{"bad port", func(cfg *Config) { cfg.Port = "70000" }, "Port"},
		{"backoff below interval", func(cfg *Config) { cfg.ReleaseMaxBackoff = time.Second }, "ReleaseMaxBackoff"},
		{"unsupported default status", func(cfg *Config) { cfg.DefaultBookingStatus = "completed" }, "DefaultBookingStatus"},
		{"bad tour service url", func(cfg *Config) { cfg.TourServiceURL = "tours.local" }, "TourServiceURL"},
		{"kafka enabled without topic", func(cfg *Config) { cfg.KafkaEnabled = true; cfg.PaymentTopic = "" }, "PaymentTopic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017/tourbook")
	if strings.Contains(got, "hunter2") || !strings.Contains(got, "***:***@") {
		t.Errorf("credentials not redacted: %s", got)
	}
}

func TestNormalizePaginationLimit(t *testing.T) {
	if got := NormalizePaginationLimit(0); got != 10 {
		t.Errorf("expected default 10, got %d", got)
	}
	if got := NormalizePaginationLimit(DefaultPaginationLimit + 1); got != DefaultPaginationLimit {
		t.Errorf("expected cap %d, got %d", DefaultPaginationLimit, got)
	}
	if got := NormalizeOffset(-3); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
