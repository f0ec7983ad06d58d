// Package main запускает HTTP-сервер сервиса клубных привилегий.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/clubperks/internal/catalog"
	"github.com/mmeshcher/clubperks/internal/config"
	"github.com/mmeshcher/clubperks/internal/events"
	"github.com/mmeshcher/clubperks/internal/handler"
	"github.com/mmeshcher/clubperks/internal/middleware"
	"github.com/mmeshcher/clubperks/internal/repository"
	"github.com/mmeshcher/clubperks/internal/scheduler"
	"github.com/mmeshcher/clubperks/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI, cfg.LockTimeout)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var catalogClient *catalog.Client
	if cfg.CatalogAddress != "" {
		catalogClient = catalog.NewClient(cfg.CatalogAddress)
	}

	var publisher service.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		client, err := events.NewKafkaClient(brokers, "clubperks")
		if err != nil {
			sugar.Fatalw("kafka initialization error", "error", err.Error())
		}

		topicCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := events.EnsureTopic(topicCtx, client, cfg.KafkaTopic, 3, 1); err != nil {
			sugar.Warnw("kafka topic check failed", "topic", cfg.KafkaTopic, "error", err.Error())
		}
		cancel()

		kafkaPublisher := events.NewKafkaPublisher(client, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		sugar.Infow("kafka brokers not configured, events stay in outbox")
	}

	svc := service.NewService(repo, catalogClient, publisher, logger, service.Options{
		CodeTTL:         cfg.CodeTTL,
		EventTopic:      cfg.KafkaTopic,
		CatalogInterval: cfg.CatalogInterval,
	})
	defer svc.Close()

	jobs, err := scheduler.New(svc, scheduler.Schedules{
		Sweep: cfg.SweepSchedule,
		Relay: cfg.RelaySchedule,
	}, logger)
	if err != nil {
		sugar.Fatalw("scheduler initialization error", "error", err.Error())
	}

	if cfg.AuthSecret == "" {
		sugar.Warnw("AUTH_SECRET is empty, using a random key: tokens from the identity service will be rejected")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Синхронизация каталога предложений и задачи по расписанию
	g.Go(func() error {
		svc.StartCatalogSync(ctx)
		jobs.Start()
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting clubperks server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		jobs.Stop(shutdownCtx)
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
