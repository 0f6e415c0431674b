// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package copier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nishisan-dev/n-stream/internal/config"
)

// PipelineJob representa um pipeline agendado com guard de execução.
type PipelineJob struct {
	Entry      config.PipelineEntry
	mu         sync.Mutex
	running    bool
	LastResult *Result
}

// Snapshot retorna o estado corrente do job para o StatsReporter.
func (j *PipelineJob) Snapshot() (running bool, last *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running, j.LastResult
}

// RunFunc executa um pipeline; injetada para os testes do scheduler.
type RunFunc func(ctx context.Context, entry config.PipelineEntry, logger *slog.Logger) (*Result, error)

// Scheduler gerencia N cron jobs independentes, um por pipeline.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []*PipelineJob
}

// NewScheduler cria um Scheduler com um cron job por pipeline. Todos os
// pipelines precisam de schedule no modo daemon.
func NewScheduler(cfg *config.Config, logger *slog.Logger, runFn RunFunc) (*Scheduler, error) {
	s := &Scheduler{logger: logger}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	for _, entry := range cfg.Pipelines {
		if entry.Schedule == "" {
			return nil, fmt.Errorf("pipeline %q has no schedule (required in daemon mode)", entry.Name)
		}

		job := &PipelineJob{Entry: entry}
		s.jobs = append(s.jobs, job)

		jobRef := job
		entryRef := entry
		if _, err := c.AddFunc(entry.Schedule, func() {
			s.executeJob(jobRef, entryRef, runFn)
		}); err != nil {
			return nil, fmt.Errorf("adding cron job for pipeline %q: %w", entry.Name, err)
		}

		logger.Info("registered pipeline job",
			"pipeline", entry.Name,
			"schedule", entry.Schedule,
			"sinks", len(entry.Sinks),
		)
	}

	s.cron = c
	return s, nil
}

// Start inicia o scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop para o scheduler e aguarda jobs em andamento.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("scheduler stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Jobs retorna os jobs registrados (para o StatsReporter).
func (s *Scheduler) Jobs() []*PipelineJob {
	return s.jobs
}

func (s *Scheduler) executeJob(job *PipelineJob, entry config.PipelineEntry, runFn RunFunc) {
	entryLogger := s.logger.With("pipeline", entry.Name)

	job.mu.Lock()
	if job.running {
		job.LastResult = &Result{Status: "skipped", Timestamp: time.Now()}
		job.mu.Unlock()
		entryLogger.Warn("pipeline already running, skipping scheduled execution")
		return
	}
	job.running = true
	job.mu.Unlock()

	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	entryLogger.Info("scheduled pipeline triggered")

	result, err := runFn(context.Background(), entry, entryLogger)
	if err != nil {
		entryLogger.Error("pipeline run failed", "error", err)
	}

	job.mu.Lock()
	job.LastResult = result
	job.mu.Unlock()
}
