package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/config"
	httpserver "github.com/Clark-Hu/store-ratings/internal/http"
	"github.com/Clark-Hu/store-ratings/internal/platform/logger"
	"github.com/Clark-Hu/store-ratings/internal/platform/metrics"
	"github.com/Clark-Hu/store-ratings/internal/platform/tracer"
	"github.com/Clark-Hu/store-ratings/internal/repository"
	"github.com/Clark-Hu/store-ratings/internal/service"
	"github.com/Clark-Hu/store-ratings/internal/store"
)

const serviceName = "store-ratings-api"

func main() {
	if err := run(); err != nil {
		log.Fatalf("%s: %v", serviceName, err)
	}
}

// run owns every deferred cleanup so failures still close the pool and flush logs.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat).With(zap.String("service", serviceName))
	defer func() { _ = zl.Sync() }()

	shutdownTracer, err := tracer.Init(ctx, cfg.OTelEndpoint, serviceName, zl)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			zl.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		ApplicationName:        serviceName,
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 zl,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	m := metrics.New()
	if err := m.RegisterPool(st.ConnectionStates); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	repo := repository.New(st)
	server := httpserver.New(cfg, httpserver.Deps{
		DB:      st,
		Listing: service.NewListing(repo, zl, m),
		Ratings: service.NewRatings(repo, zl, m),
		Admin:   service.NewAdmin(repo, zl),
		Issuer:  auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		Metrics: m,
	}, zl)

	zl.Info("listening", zap.String("port", cfg.Port))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			zl.Error("server error", zap.Error(err))
			serveErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Error("graceful shutdown error", zap.Error(err))
	}
	zl.Info("stopped")
	return serveErr
}
