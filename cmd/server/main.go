package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/orbitek/cargo-storage/internal/adapter/handler"
	"github.com/orbitek/cargo-storage/internal/adapter/storage"
	"github.com/orbitek/cargo-storage/internal/adapter/validation"
	"github.com/orbitek/cargo-storage/internal/config"
	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/core/service"
	"github.com/orbitek/cargo-storage/internal/observability"
	"github.com/orbitek/cargo-storage/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.Setup(ctx, "cargo-storage", cfg.OTelEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Initialize adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	cargoClient := validation.NewCargoClient(cfg.CargoLookupURL, cfg.ValidationTimeout)
	validator := service.NewReferenceValidator(map[domain.EntityKind]port.ValidationPort{
		domain.KindCargo:       cargoClient,
		domain.KindStorageUnit: validation.NewLocalUnitValidator(mysqlAdapter),
		domain.KindSpacecraft:  validation.NewHTTPValidator(domain.KindSpacecraft, cfg.SpacecraftLookupURL, cfg.ValidationTimeout),
		domain.KindUser:        validation.NewHTTPValidator(domain.KindUser, cfg.UserLookupURL, cfg.ValidationTimeout),
	})

	// Initialize services
	allocationService := service.NewAllocationService(
		mysqlAdapter, mysqlAdapter, redisAdapter, cargoClient, validator, cfg.SyncQueueSize, logger)
	transactionService := service.NewTransactionService(mysqlAdapter, redisAdapter, validator, logger)
	manifestService := service.NewManifestService(mysqlAdapter, validator, logger)

	// Start snapshot sync workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			syncWorkerLoop(id, allocationService.SyncQueue(), mysqlAdapter, redisAdapter, logger)
		}(i)
	}
	logger.Info("started snapshot sync workers", zap.Int("count", cfg.WorkerCount))

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(allocationService, transactionService, manifestService, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	// Close sync queue and wait for workers
	allocationService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown error", zap.Error(err))
	}

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "prod" || mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// syncWorkerLoop refreshes the Redis capacity snapshot for units whose
// ledger changed. Best effort: a failed refresh is logged and the mirror
// catches up on the next mutation.
func syncWorkerLoop(id int, queue <-chan string, db port.StorageUnitRepository, cache port.CacheRepository, logger *zap.Logger) {
	for code := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		unit, err := db.GetStorageUnit(ctx, code)
		switch {
		case err != nil:
			logger.Warn("sync worker failed to load unit",
				zap.Int("worker", id), zap.String("unit", code), zap.Error(err))
		case unit == nil:
			logger.Warn("sync worker found no unit", zap.Int("worker", id), zap.String("unit", code))
		default:
			if err := cache.SetUnitSnapshot(ctx, *unit); err != nil {
				logger.Warn("sync worker failed to refresh snapshot",
					zap.Int("worker", id), zap.String("unit", code), zap.Error(err))
			}
		}

		cancel()
	}
}
