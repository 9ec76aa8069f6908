package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	domainavailability "vendibook/internal/domain/availability"
	"vendibook/internal/domain/fees"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("config: unknown storage driver")
	ErrMissingValue  = errors.New("config: required value missing")
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDB       string `envconfig:"MONGO_DB" default:"vendibook"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"CHECKOUT_SESSION_TTL" default:"2h"`

	KafkaBrokers       []string        `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix   string          `envconfig:"KAFKA_TOPIC_PREFIX"`
	IdempotencyTTL     time.Duration   `envconfig:"IDEMP_TTL" default:"168h"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:"minioadmin"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:"minioadmin"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"vendibook-documents"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	JWTSecret       string `envconfig:"JWT_SECRET"`

	FeeRenterBps     int64  `envconfig:"FEE_RENTER_BPS" default:"1290"`
	FeeHostBps       int64  `envconfig:"FEE_HOST_BPS" default:"1290"`
	BufferDaysBefore int    `envconfig:"BUFFER_DAYS_BEFORE" default:"0"`
	BufferDaysAfter  int    `envconfig:"BUFFER_DAYS_AFTER" default:"0"`
	ListingsFixtures string `envconfig:"LISTINGS_FIXTURES" default:"data/listings.json"`
}

// Load reads an optional .env file and parses configuration from the current environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings each selected driver depends on.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI", ErrMissingValue)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN", ErrMissingValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.StorageDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: CHECKOUT_SESSION_TTL must be positive")
	}
	if c.BufferDaysBefore < 0 || c.BufferDaysAfter < 0 {
		return fmt.Errorf("config: buffer days must not be negative")
	}
	if err := c.FeeSchedule().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) FeeSchedule() fees.Schedule {
	return fees.Schedule{RenterBps: c.FeeRenterBps, HostBps: c.FeeHostBps}
}

func (c Config) BufferPolicy() domainavailability.BufferPolicy {
	return domainavailability.BufferPolicy{DaysBefore: c.BufferDaysBefore, DaysAfter: c.BufferDaysAfter}
}

// RelayEnabled reports whether outbox events can be relayed to Kafka.
func (c Config) RelayEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) DocumentsEnabled() bool {
	return c.S3Endpoint != ""
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
