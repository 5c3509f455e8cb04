package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 20, cfg.Sync.QuickBatchSize)
	assert.Equal(t, 10, cfg.Sync.EnhancedBatchSize)
	assert.Equal(t, 50, cfg.Sync.EnhancedLimit)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, "product_time_stamp.txt", cfg.Sync.CheckpointPath)
	assert.Equal(t, int64(12), cfg.Catalog.DefaultCategoryID)
	assert.Equal(t, int64(10), cfg.Catalog.DefaultSubCategoryID)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("RETRY_DELAY_MS", "250")
	t.Setenv("KAFKA_BROKERS", "a:9092, ,b:9092")
	t.Setenv("QUICK_BATCH_SIZE", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.RetryDelay)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 20, cfg.Sync.QuickBatchSize)
}
