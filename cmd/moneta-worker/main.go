package main

import (
	"context"
	"time"

	"moneta/internal/cli"
	"moneta/internal/notify"
)

func main() {
	cfg, logger := cli.Bootstrap("moneta-worker")

	ctx, cancel := cli.SignalContext()
	defer cancel()

	ctrl := cli.Startup(ctx, cfg, logger)
	defer ctrl.Close()

	if !ctrl.Sync.Attached() {
		logger.Error("No remote configured; the worker has nothing to do. Set REMOTE_BACKEND.")
		return
	}

	// Initial cycle so a fresh device converges before the first tick.
	if err := ctrl.Sync.Cycle(ctx); err != nil {
		logger.Warn("Initial sync cycle failed", "error", err)
	}

	// Change notifications trigger cycles early; the ticker is the backstop
	// when no broker is configured or messages are lost.
	if cfg.AMQPURL != "" {
		amqpClient, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, falling back to timer only", "error", err)
		} else {
			defer amqpClient.Close()
			go func() {
				err := amqpClient.ConsumeChanged(ctx, func(ctx context.Context, msg *notify.ChangedMessage) error {
					logger.Info("Change notification received", "entity", msg.Entity, "count", msg.Count)
					return ctrl.Sync.Cycle(ctx)
				})
				if err != nil && err != context.Canceled {
					logger.Error("Message consumption stopped", "error", err)
				}
			}()
		}
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	logger.Info("Sync worker running", "interval", cfg.SyncInterval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync worker stopping")
			return
		case <-ticker.C:
			if err := ctrl.Sync.Cycle(ctx); err != nil {
				logger.Warn("Sync cycle failed, will retry next tick", "error", err)
			}
		}
	}
}
