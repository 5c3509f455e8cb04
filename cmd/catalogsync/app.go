package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-catalog-sync/config"
	"github.com/fekuna/omnipos-catalog-sync/internal/cache"
	"github.com/fekuna/omnipos-catalog-sync/internal/catalog/odoo"
	"github.com/fekuna/omnipos-catalog-sync/internal/checkpoint"
	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/image"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/publisher"
	invRepoPkg "github.com/fekuna/omnipos-catalog-sync/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-catalog-sync/internal/inventory/usecase"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/metrics"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-sync/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-catalog-sync/internal/product/usecase"
	"github.com/fekuna/omnipos-catalog-sync/internal/storage"
	"github.com/fekuna/omnipos-catalog-sync/internal/syncer"
)

// app owns every long-lived resource of a sync process.
type app struct {
	cfg       *config.Config
	logger    logger.ZapLogger
	db        *sqlx.DB
	redis     *cache.RedisClient
	publisher inventory.Publisher
	metrics   *metrics.Metrics
	health    *syncer.Health
	orch      *syncer.Orchestrator
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
	}
	return logger.NewZapLogger(logConfig)
}

func openDatabase(cfg *config.Config, log logger.ZapLogger) (*sqlx.DB, error) {
	db, err := database.Open(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.String("db_name", cfg.Database.DBName),
	)
	return db, nil
}

// newApp wires the sync. notify is called whenever store health changes.
func newApp(ctx context.Context, cfg *config.Config, log logger.ZapLogger, notify func(ok bool)) (*app, error) {
	a := &app{cfg: cfg, logger: log, metrics: metrics.New()}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	a.db = db
	database.Migrate(ctx, db, log)
	store := database.NewStore(db)

	client := odoo.NewClient(odoo.Config{
		URL:     cfg.Remote.URL,
		DB:      cfg.Remote.DB,
		UID:     cfg.Remote.UID,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout,
	})
	reader := odoo.NewReader(client, cfg.Remote.ChunkSize)

	var locker syncer.Locker
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = redisClient
		locker = redisClient
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = publisher.NewKafkaPublisher(&publisher.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.StockTopic,
		})
		log.Info("Publishing stock events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.StockTopic))
	} else {
		a.publisher = publisher.Noop{}
	}

	disk, err := storage.New(ctx, &storage.Config{
		Driver:     cfg.Storage.Driver,
		LocalRoot:  cfg.Storage.LocalRoot,
		S3Bucket:   cfg.Storage.S3Bucket,
		S3Region:   cfg.Storage.S3Region,
		S3Key:      cfg.Storage.S3Key,
		S3Secret:   cfg.Storage.S3Secret,
		S3Endpoint: cfg.Storage.S3Endpoint,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	prodRepo := prodRepoPkg.NewSQLRepository(store)
	invRepo := invRepoPkg.NewSQLRepository(store)

	prodUC := prodUCPkg.NewReconciler(prodRepo, prodUCPkg.Defaults{
		CategoryID:      cfg.Catalog.DefaultCategoryID,
		SubCategoryID:   cfg.Catalog.DefaultSubCategoryID,
		ChildCategoryID: cfg.Catalog.DefaultChildCategoryID,
		ThumbImage:      cfg.Catalog.DefaultThumbImage,
	}, log)
	driftUC := invUCPkg.NewDriftUseCase(invRepo, reader, prodRepo, a.publisher, log)

	a.health = syncer.NewHealth(notify)
	deps := syncer.Deps{
		Store:       store,
		Reader:      reader,
		Products:    prodUC,
		Drift:       driftUC,
		Checkpoints: checkpoint.NewFileStore(cfg.Sync.CheckpointPath),
		Metrics:     a.metrics,
		Health:      a.health,
		Logger:      log,
		Locker:      locker,
	}
	if cfg.Sync.ImageCheckEvery > 0 {
		deps.Images = image.NewChecker(prodRepo, reader, disk, cfg.Storage.ImagePathPrefix, log)
	}

	s := cfg.Sync
	a.orch = syncer.New(deps, syncer.Options{
		PageSize:     s.PageSize,
		ReadAttempts: s.RetryAttempts,
		ReadDelay:    s.RetryDelay,
		Enhanced: dto.DriftOptions{
			Pass:      "enhanced",
			Filters:   dto.CandidateFilters{InStockOnly: true, RecentFirst: true, Limit: s.EnhancedLimit},
			BatchSize: s.EnhancedBatchSize,
			Attempts:  s.RetryAttempts,
			Delay:     s.RetryDelay,
		},
		Quick: dto.DriftOptions{
			Pass:      "quick",
			Filters:   dto.CandidateFilters{Limit: s.QuickLimit},
			BatchSize: s.QuickBatchSize,
			Attempts:  s.RetryAttempts,
			Delay:     s.RetryDelay,
		},
		ImageEvery: s.ImageCheckEvery,
		ImageLimit: s.ImageCheckLimit,
		LockTTL:    s.LockTTL,
	})
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
