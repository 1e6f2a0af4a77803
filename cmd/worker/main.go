// Command worker drains the notifications queue without serving HTTP.  Run
// it when email delivery should scale apart from the API.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/config"
	"github.com/iliyamo/carwash-booking/internal/logger"
	"github.com/iliyamo/carwash-booking/internal/notify"
	"github.com/iliyamo/carwash-booking/internal/queue"
)

func main() {
	cfg := config.LoadWorker()
	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := notify.NewSender(cfg.Email.APIKey, cfg.Email.From, zl)
	disp := notify.NewDispatcher(sender, notify.DispatcherConfig{
		BaseURL: cfg.BaseURL, ReplyTo: cfg.Email.AdminEmail, Timeout: cfg.ExternalCallTimeout,
	}, zl)
	consumer := &queue.Consumer{URL: config.AMQPURL(), Handle: disp.Handle, Log: zl, Prefetch: 50}

	zl.Info("worker started", zap.String("queue", queue.NotificationsQueue))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("consumer stopped", zap.Error(err))
	}
	zl.Info("worker stopped")
}
