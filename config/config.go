package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Remote   RemoteConfig
	Sync     SyncConfig
	Catalog  CatalogConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	AppEnv      string
	GRPCPort    string
	MetricsAddr string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver          string // pgx, mysql or sqlite3
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RemoteConfig struct {
	URL       string
	DB        string
	UID       int64
	APIKey    string
	Timeout   time.Duration
	ChunkSize int
}

type SyncConfig struct {
	Interval          time.Duration
	PageSize          int
	QuickBatchSize    int
	QuickLimit        int
	EnhancedBatchSize int
	EnhancedLimit     int
	RetryAttempts     int
	RetryDelay        time.Duration
	CheckpointPath    string
	ImageCheckEvery   int // minutes
	ImageCheckLimit   int
	LockTTL           time.Duration
}

// CatalogConfig holds the placeholders written on newly imported products.
type CatalogConfig struct {
	DefaultCategoryID      int64
	DefaultSubCategoryID   int64
	DefaultChildCategoryID int64
	DefaultThumbImage      string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	StockTopic string
}

type StorageConfig struct {
	Driver          string // local or s3
	LocalRoot       string
	ImagePathPrefix string
	S3Bucket        string
	S3Region        string
	S3Key           string
	S3Secret        string
	S3Endpoint      string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:      getEnv("APP_ENV", "dev"),
			GRPCPort:    getEnv("GRPC_PORT", ":8082"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9102"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			User:            getEnv("DB_USER", "storefront"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "storefront"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 2),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("DB_CONN_MAX_IDLE_TIME", 60),
		},
		Remote: RemoteConfig{
			URL:       getEnv("REMOTE_URL", "http://localhost:8069"),
			DB:        getEnv("REMOTE_DB", ""),
			UID:       int64(getEnvInt("REMOTE_UID", 2)),
			APIKey:    getEnv("REMOTE_API_KEY", ""),
			Timeout:   time.Duration(getEnvInt("REMOTE_TIMEOUT_SECONDS", 30)) * time.Second,
			ChunkSize: getEnvInt("REMOTE_CHUNK_SIZE", 200),
		},
		Sync: SyncConfig{
			Interval:          time.Duration(getEnvInt("SYNC_INTERVAL_SECONDS", 30)) * time.Second,
			PageSize:          getEnvInt("SYNC_PAGE_SIZE", 100),
			QuickBatchSize:    getEnvInt("QUICK_BATCH_SIZE", 20),
			QuickLimit:        getEnvInt("QUICK_LIMIT", 0),
			EnhancedBatchSize: getEnvInt("ENHANCED_BATCH_SIZE", 10),
			EnhancedLimit:     getEnvInt("ENHANCED_LIMIT", 50),
			RetryAttempts:     getEnvInt("RETRY_ATTEMPTS", 3),
			RetryDelay:        getEnvDuration("RETRY_DELAY_MS", time.Second, time.Millisecond),
			CheckpointPath:    getEnv("CHECKPOINT_PATH", "product_time_stamp.txt"),
			ImageCheckEvery:   getEnvInt("IMAGE_CHECK_EVERY_MINUTES", 5),
			ImageCheckLimit:   getEnvInt("IMAGE_CHECK_LIMIT", 20),
			LockTTL:           getEnvDuration("SYNC_LOCK_TTL_SECONDS", 10*time.Minute, time.Second),
		},
		Catalog: CatalogConfig{
			DefaultCategoryID:      int64(getEnvInt("DEFAULT_CATEGORY_ID", 12)),
			DefaultSubCategoryID:   int64(getEnvInt("DEFAULT_SUB_CATEGORY_ID", 10)),
			DefaultChildCategoryID: int64(getEnvInt("DEFAULT_CHILD_CATEGORY_ID", 0)),
			DefaultThumbImage:      getEnv("DEFAULT_THUMB_IMAGE", "storage/website_images/placeholder.png"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvSlice("KAFKA_BROKERS", nil),
			StockTopic: getEnv("KAFKA_TOPIC_STOCK", "catalog.stock"),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "local"),
			LocalRoot:       getEnv("STORAGE_LOCAL_ROOT", "./public"),
			ImagePathPrefix: getEnv("IMAGE_PATH_PREFIX", "storage/website_images/remote"),
			S3Bucket:        getEnv("S3_BUCKET", ""),
			S3Region:        getEnv("S3_REGION", "us-east-1"),
			S3Key:           getEnv("S3_KEY", ""),
			S3Secret:        getEnv("S3_SECRET", ""),
			S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, fallback, unit time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil && i >= 0 {
			return time.Duration(i) * unit
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return fallback
}
