package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/metrics"
	"github.com/fekuna/omnipos-catalog-sync/internal/syncer"
)

// healthService is the gRPC health service name reporting cycle status.
const healthService = "catalogsync"

var maxCyclesFlag int

// catalogsync run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run sync cycles until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := loadConfig()
		appLogger := newLogger(cfg)
		defer appLogger.Sync()

		healthServer := health.NewServer()
		a, err := newApp(ctx, cfg, appLogger, func(ok bool) {
			status := healthpb.HealthCheckResponse_SERVING
			if !ok {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			healthServer.SetServingStatus(healthService, status)
		})
		if err != nil {
			return err
		}
		defer a.Close()
		healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

		// gRPC health
		port := cfg.Server.GRPCPort
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		lis, err := net.Listen("tcp", port)
		if err != nil {
			return err
		}
		grpcServer := grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
		go func() {
			appLogger.Info("Starting gRPC server", zap.String("port", port))
			if err := grpcServer.Serve(lis); err != nil {
				appLogger.Error("gRPC server stopped", zap.Error(err))
			}
		}()

		// metrics
		metricsServer := &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           metrics.NewRouter(a.metrics, a.health.Healthy),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			appLogger.Info("Starting metrics server", zap.String("addr", cfg.Server.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("metrics server stopped", zap.Error(err))
			}
		}()

		err = a.orch.Run(ctx, syncer.IntervalScheduler{Interval: cfg.Sync.Interval}, maxCyclesFlag)
		if errors.Is(err, context.Canceled) {
			err = nil
		}

		appLogger.Info("Shutting down...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
			appLogger.Warn("metrics server shutdown", zap.Error(serr))
		}
		appLogger.Info("Stopped")
		return err
	},
}

// catalogsync once
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sync cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := loadConfig()
		appLogger := newLogger(cfg)
		defer appLogger.Sync()

		a, err := newApp(ctx, cfg, appLogger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		report := a.orch.RunCycle(ctx)
		if report.Skipped {
			appLogger.Info("cycle skipped, lock held elsewhere")
		}
		return report.Err
	},
}

// catalogsync migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Add remote_key_id columns and indexes to the storefront tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		appLogger := newLogger(cfg)
		defer appLogger.Sync()

		db, err := openDatabase(cfg, appLogger)
		if err != nil {
			return err
		}
		defer db.Close()

		database.Migrate(cmd.Context(), db, appLogger)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&maxCyclesFlag, "max-cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
}
