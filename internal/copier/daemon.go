// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package copier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishisan-dev/n-stream/internal/config"
	"github.com/nishisan-dev/n-stream/internal/logging"
)

// RunDaemon inicia o copier em modo daemon com um cron job por pipeline.
// Bloqueia até receber SIGTERM ou SIGINT.
// SIGHUP recarrega a configuração sem downtime (systemctl reload).
func RunDaemon(configPath string, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting daemon", "pipelines", len(cfg.Pipelines))

	runFn := func(ctx context.Context, entry config.PipelineEntry, entryLogger *slog.Logger) (*Result, error) {
		runID := time.Now().UTC().Format("20060102-150405")
		runLogger, closer, logPath, err := logging.NewRunLogger(entryLogger, cfg.Daemon.RunLogDir, entry.Name, runID)
		if err != nil {
			entryLogger.Warn("run log unavailable, using global logger", "error", err)
			runLogger = entryLogger
		} else if logPath != "" {
			defer closer.Close()
		}
		return Run(ctx, entry, runLogger)
	}

	sched, err := NewScheduler(cfg, logger, runFn)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	monitor := NewSystemMonitor(logger)
	monitor.Start()

	stats := NewStatsReporter(sched, monitor, cfg.Stats.Interval, logger)
	stats.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		sig := <-sigCh

		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading config", "path", configPath)

			newCfg, loadErr := config.Load(configPath)
			if loadErr != nil {
				logger.Error("reload failed, keeping current config", "error", loadErr)
				continue
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			stats.Stop()
			monitor.Stop()
			sched.Stop(stopCtx)
			stopCancel()

			cfg = newCfg
			sched, err = NewScheduler(cfg, logger, runFn)
			if err != nil {
				logger.Error("failed to create scheduler after reload", "error", err)
				return fmt.Errorf("reload scheduler: %w", err)
			}
			sched.Start()
			monitor = NewSystemMonitor(logger)
			monitor.Start()
			stats = NewStatsReporter(sched, monitor, cfg.Stats.Interval, logger)
			stats.Start()

			logger.Info("config reloaded successfully", "pipelines", len(cfg.Pipelines))
			continue
		}

		// SIGTERM ou SIGINT — graceful shutdown
		logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		stats.Stop()
		monitor.Stop()
		sched.Stop(ctx)
		cancel()
		return nil
	}
}

// RunAll executa todos os pipelines sequencialmente (modo --once).
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var firstErr error

	for _, entry := range cfg.Pipelines {
		entryLogger := logger.With("pipeline", entry.Name)
		entryLogger.Info("starting pipeline")

		if _, err := Run(ctx, entry, entryLogger); err != nil {
			entryLogger.Error("pipeline failed", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("pipeline %q failed: %w", entry.Name, err)
			}
			continue
		}

		entryLogger.Info("pipeline completed successfully")
	}

	return firstErr
}
