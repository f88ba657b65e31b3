// Package main запускает HTTP-сервер сервиса EcoDeli.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecodeli/ecodeli/internal/config"
	"github.com/ecodeli/ecodeli/internal/handler"
	"github.com/ecodeli/ecodeli/internal/middleware"
	"github.com/ecodeli/ecodeli/internal/notify"
	"github.com/ecodeli/ecodeli/internal/repository"
	"github.com/ecodeli/ecodeli/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	svc := service.NewService(repo, service.Config{
		TaxRate:        cfg.TaxRate,
		InvoiceDueDays: cfg.InvoiceDueDays,
	})

	var sinks []notify.Sink
	if cfg.NotifierAddress != "" {
		sinks = append(sinks, notify.NewWebhookClient(cfg.NotifierAddress))
	}
	if cfg.RedisAddress != "" {
		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddress})
		defer queue.Close()
		sinks = append(sinks, notify.NewQueueSink(queue))
	}
	dispatcher := notify.NewDispatcher(repo, logger, sinks...)

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, tokens will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Ретрансляция событий outbox
	g.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting ecodeli server",
			"addr", cfg.RunAddress,
			"sinks", len(sinks),
			"tax_rate", cfg.TaxRate.String(),
		)
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
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
