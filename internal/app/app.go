package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/exam-blueprint/internal/config"
	handler "github.com/godilite/exam-blueprint/internal/grpc"
	"github.com/godilite/exam-blueprint/internal/repository"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/cache"
	dbbuilder "github.com/godilite/exam-blueprint/pkg/database"
	grpcsrv "github.com/godilite/exam-blueprint/pkg/grpc/server"
	"github.com/godilite/exam-blueprint/pkg/tracing"
)

const (
	migrateTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type App struct {
	logger      *zap.Logger
	dbPool      *sql.DB
	cache       handler.Cacher
	grpcServer  *grpcsrv.Server
	tracer      *tracing.Provider
	traceOutput io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	if cfg.TracingEnabled {
		w, closer, err := openTraceOutput(cfg.TracingOutput)
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		tp, err := tracing.New(ctx, tracing.WithService("exam-blueprint", "dev"), tracing.WithWriter(w))
		if err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		a.tracer, a.traceOutput = tp, closer
		logger.Info("Tracing enabled", zap.String("output", cfg.TracingOutput))
	}

	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	a.dbPool = dbPool
	logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver))

	planRepo := repository.NewPlanRepository(dbPool, cfg.DBDriver)

	migrateCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()
	if err := planRepo.Migrate(migrateCtx); err != nil {
		a.close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
		cache.WithKeyPrefix("blueprint:"),
	)
	if err != nil {
		logger.Warn("Cache unavailable, serving without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		a.cache = cache.Noop{}
	} else {
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
		a.cache = cacheClient
	}

	blueprintService := service.NewBlueprintService(planRepo, logger.Named("blueprint-service"))

	grpcHandlers := handler.NewGRPCHandlers(blueprintService, a.cache, logger, cfg.CacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(cfg.GRPCLoggingEnabled),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(&handler.ServiceDesc, grpcHandlers)
	a.grpcServer = grpcServer

	return a, nil
}

func openTraceOutput(output string) (io.Writer, io.Closer, error) {
	if output == "" || output == "stdout" {
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// Addr returns the gRPC listening address.
func (a *App) Addr() string {
	return a.grpcServer.Addr().String()
}

// Run starts the application and blocks until a shutdown signal is received
// or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("gRPC shutdown deadline exceeded", zap.Error(err))
	}
	a.close()

	select {
	case <-shutdownCtx.Done():
		a.logger.Warn("shutdown completed but deadline exceeded")
	default:
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return nil
}

// close releases everything NewApp opened, in reverse order.
func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", zap.Error(err))
		}
	}
	if a.traceOutput != nil {
		_ = a.traceOutput.Close()
	}
}
