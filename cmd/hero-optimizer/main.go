package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	herohandler "github.com/lumeshot/hero-optimizer/internal/api/handlers/hero"
	"github.com/lumeshot/hero-optimizer/internal/api/router"
	"github.com/lumeshot/hero-optimizer/internal/api/server"
	"github.com/lumeshot/hero-optimizer/internal/config"
	"github.com/lumeshot/hero-optimizer/internal/infra/kafka/consumer"
	"github.com/lumeshot/hero-optimizer/internal/infra/kafka/producer"
	heromsg "github.com/lumeshot/hero-optimizer/internal/kafka/handlers/hero"
	"github.com/lumeshot/hero-optimizer/internal/model"
	"github.com/lumeshot/hero-optimizer/internal/optimizer"
	"github.com/lumeshot/hero-optimizer/internal/repository/settings"
	herosvc "github.com/lumeshot/hero-optimizer/internal/service/hero"
	"github.com/lumeshot/hero-optimizer/internal/storage/object"
	"github.com/lumeshot/hero-optimizer/internal/watermark"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	// Collect slave DSNs for replica connections.
	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for Kafka publishing and consumption.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize object storage (MinIO).
	store, err := object.NewStore(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Optional studio watermark on variants.
	var stamper optimizer.Stamper
	if cfg.Hero.Watermark.Enabled {
		stamper = watermark.New(cfg.Hero.Watermark.Text, cfg.Hero.Watermark.FontPath, cfg.Hero.Watermark.Opacity)
	}

	// Variant matrix from config, in the fixed breakpoint order.
	optCfg := optimizer.Config{
		Breakpoints: []optimizer.BreakpointConfig{
			{Name: model.BreakpointMobile, Width: cfg.Hero.Mobile.Width, Height: cfg.Hero.Mobile.Height, Quality: cfg.Hero.Mobile.Quality},
			{Name: model.BreakpointTablet, Width: cfg.Hero.Tablet.Width, Height: cfg.Hero.Tablet.Height, Quality: cfg.Hero.Tablet.Quality},
			{Name: model.BreakpointDesktop, Width: cfg.Hero.Desktop.Width, Height: cfg.Hero.Desktop.Height, Quality: cfg.Hero.Desktop.Quality},
		},
		ChromaSubsampling: optimizer.ChromaRatio(cfg.Hero.ChromaSubsampling),
	}

	// Initialize repository, producers, pipeline, and service layer.
	repo := settings.NewRepository(db)
	processedProducer := producer.New(cfg.Kafka.Brokers, cfg.Kafka.ProcessedTopic, strategy)
	orphanProducer := producer.New(cfg.Kafka.Brokers, cfg.Kafka.OrphanTopic, strategy)
	heroOptimizer := optimizer.New(optCfg, store, stamper)
	service := herosvc.NewService(heroOptimizer, repo, processedProducer, orphanProducer)

	// Kafka message handler for orphan object cleanup.
	cleanupHandler := heromsg.NewCleanupHandler(store)

	// HTTP handler for hero routes.
	handler := herohandler.NewHandler(service, cfg.Upload)

	// Kafka consumer for orphan cleanup events.
	c := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.OrphanTopic, cfg.Kafka.GroupID, strategy, cleanupHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(handler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	// Close Kafka producer and consumer clients.
	if err = processedProducer.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close processed producer client")
	}
	if err = orphanProducer.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close orphan producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
