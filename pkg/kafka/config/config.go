package kafka_config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"tourbook/pkg/logger"
)

// Config holds the client tuning shared by the notification producer and the
// payment consumer. Topics and consumer groups live in the service config.
type Config struct {
	Brokers  []string
	ClientID string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 all replicas, 0 none, 1 leader
	ProducerCompression  string // none, gzip, snappy, lz4, zstd

	ConsumerStartOffset       int64 // -1 newest, -2 oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int
	ConsumerRetryBackoff      time.Duration

	EnableMiddleware bool
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

// Load reads the Kafka settings from the environment. Unlike the service
// config, a malformed value is an error rather than a silent fallback.
func Load() (*Config, error) {
	e := &envReader{}

	cfg := &Config{
		Brokers:  splitBrokers(e.str(EnvKafkaBrokers, DefaultKafkaBrokers)),
		ClientID: e.str(EnvKafkaClientID, DefaultKafkaClientID),

		ProducerMaxAttempts:  e.num(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: e.duration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  e.num(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  strings.ToLower(e.str(EnvKafkaProducerCompression, DefaultProducerCompression)),

		ConsumerStartOffset:       int64(e.num(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
		ConsumerMinBytes:          e.num(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:          e.num(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:           e.duration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval:    e.duration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerHeartbeatInterval: e.duration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    e.duration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  e.duration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
		ConsumerMaxRetries:        e.num(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
		ConsumerRetryBackoff:      e.duration(EnvKafkaConsumerRetryBackoff, DefaultConsumerRetryBackoff),

		EnableMiddleware: e.flag(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := errors.Join(e.err(), cfg.Validate()); err != nil {
		return nil, fmt.Errorf("kafka configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "at least one broker is required")
	for i, broker := range cfg.Brokers {
		check(broker != "", "broker %d is empty", i)
	}
	check(cfg.ClientID != "", "client id cannot be empty")

	check(cfg.ProducerMaxAttempts > 0, "producer max attempts must be positive, got %d", cfg.ProducerMaxAttempts)
	check(cfg.ProducerBatchTimeout > 0, "producer batch timeout must be positive, got %s", cfg.ProducerBatchTimeout)
	check(slices.Contains(compressions, cfg.ProducerCompression), "producer compression must be one of %v, got %q", compressions, cfg.ProducerCompression)
	check(cfg.ProducerRequireAcks >= -1 && cfg.ProducerRequireAcks <= 1, "producer require acks must be -1, 0 or 1, got %d", cfg.ProducerRequireAcks)

	check(cfg.ConsumerStartOffset == -1 || cfg.ConsumerStartOffset == -2, "consumer start offset must be -1 (newest) or -2 (oldest), got %d", cfg.ConsumerStartOffset)
	check(cfg.ConsumerMinBytes > 0, "consumer min bytes must be positive, got %d", cfg.ConsumerMinBytes)
	check(cfg.ConsumerMaxBytes >= cfg.ConsumerMinBytes, "consumer max bytes (%d) must be >= min bytes (%d)", cfg.ConsumerMaxBytes, cfg.ConsumerMinBytes)
	check(cfg.ConsumerMaxWait > 0, "consumer max wait must be positive, got %s", cfg.ConsumerMaxWait)
	check(cfg.ConsumerCommitInterval >= 0, "consumer commit interval cannot be negative, got %s", cfg.ConsumerCommitInterval)
	check(cfg.ConsumerHeartbeatInterval > 0, "consumer heartbeat interval must be positive, got %s", cfg.ConsumerHeartbeatInterval)
	check(cfg.ConsumerSessionTimeout > cfg.ConsumerHeartbeatInterval, "consumer session timeout (%s) must exceed the heartbeat interval (%s)", cfg.ConsumerSessionTimeout, cfg.ConsumerHeartbeatInterval)
	check(cfg.ConsumerRebalanceTimeout > 0, "consumer rebalance timeout must be positive, got %s", cfg.ConsumerRebalanceTimeout)
	check(cfg.ConsumerMaxRetries >= 0, "consumer max retries cannot be negative, got %d", cfg.ConsumerMaxRetries)
	check(cfg.ConsumerRetryBackoff > 0, "consumer retry backoff must be positive, got %s", cfg.ConsumerRetryBackoff)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_commit_interval", cfg.ConsumerCommitInterval,
		"consumer_session_timeout", cfg.ConsumerSessionTimeout,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"consumer_retry_backoff", cfg.ConsumerRetryBackoff,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// envReader collects parse failures so Load can report all of them at once.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return fallback
}

func (e *envReader) num(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func (e *envReader) flag(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}
