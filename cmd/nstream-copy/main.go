// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nishisan-dev/n-stream/internal/config"
	"github.com/nishisan-dev/n-stream/internal/copier"
	"github.com/nishisan-dev/n-stream/internal/logging"
)

func main() {
	configPath := flag.String("config", "/etc/nstream/copy.yaml", "path to config file")
	once := flag.Bool("once", false, "run all pipelines once and exit (no daemon)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	if *once {
		// Execução única — roda todos os pipelines sequencialmente
		if err := copier.RunAll(context.Background(), cfg, logger); err != nil {
			logger.Error("copy failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Daemon mode
	if err := copier.RunDaemon(*configPath, cfg, logger); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}
