package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/infra/config"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	unsetenv(t, "STORAGE_DRIVER", "KAFKA_BROKERS", "S3_ENDPOINT", "CHECKOUT_SESSION_TTL", "RETRY_BACKOFF", "FEE_RENTER_BPS")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, int64(1290), cfg.FeeSchedule().RenterBps)
	assert.False(t, cfg.RelayEnabled())
	assert.False(t, cfg.DocumentsEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", " Postgres ")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/vendibook")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("BUFFER_DAYS_BEFORE", "1")
	t.Setenv("BUFFER_DAYS_AFTER", "2")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RelayEnabled())
	assert.Equal(t, 1, cfg.BufferPolicy().DaysBefore)
	assert.Equal(t, 2, cfg.BufferPolicy().DaysAfter)
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		StorageDriver: config.DriverMemory,
		SessionTTL:    time.Hour,
		FeeRenterBps:  1290,
		FeeHostBps:    1290,
	}
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "unknown driver", mutate: func(c *config.Config) { c.StorageDriver = "sqlite" }, wantErr: config.ErrUnknownDriver},
		{name: "mongo without uri", mutate: func(c *config.Config) { c.StorageDriver = config.DriverMongo }, wantErr: config.ErrMissingValue},
		{name: "postgres without dsn", mutate: func(c *config.Config) { c.StorageDriver = config.DriverPostgres }, wantErr: config.ErrMissingValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_RejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero session ttl", func(c *config.Config) { c.SessionTTL = 0 }},
		{"negative buffer", func(c *config.Config) { c.BufferDaysAfter = -1 }},
		{"fee above 100 percent", func(c *config.Config) { c.FeeRenterBps = 10001 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{StorageDriver: config.DriverMemory, SessionTTL: time.Hour}
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
