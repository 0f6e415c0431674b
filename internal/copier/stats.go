// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package copier

import (
	"context"
	"log/slog"
	"time"
)

// jobSnapshot captura o estado de um job para o log estruturado.
type jobSnapshot struct {
	Name          string  `json:"name"`
	Schedule      string  `json:"schedule"`
	Sinks         int     `json:"sinks"`
	Status        string  `json:"status"`
	LastStatus    string  `json:"last_status,omitempty"`
	LastDurationS float64 `json:"last_duration_s,omitempty"`
	LastBytes     int64   `json:"last_bytes,omitempty"`
	LastChunks    int64   `json:"last_chunks,omitempty"`
	LastAt        string  `json:"last_at,omitempty"`
}

// StatsReporter emite métricas periódicas do daemon no log: estado de cada
// pipeline e métricas de sistema do SystemMonitor.
type StatsReporter struct {
	scheduler *Scheduler
	monitor   *SystemMonitor
	interval  time.Duration
	logger    *slog.Logger
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewStatsReporter cria um StatsReporter com o intervalo configurado.
func NewStatsReporter(scheduler *Scheduler, monitor *SystemMonitor, interval time.Duration, logger *slog.Logger) *StatsReporter {
	return &StatsReporter{
		scheduler: scheduler,
		monitor:   monitor,
		interval:  interval,
		logger:    logger,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start inicia a goroutine de reporting periódico.
func (sr *StatsReporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	sr.cancel = cancel

	go func() {
		defer close(sr.done)
		ticker := time.NewTicker(sr.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sr.report()
			case <-ctx.Done():
				return
			}
		}
	}()

	sr.logger.Info("stats reporter started", "interval", sr.interval)
}

// Stop para o reporter e aguarda a goroutine terminar.
func (sr *StatsReporter) Stop() {
	if sr.cancel != nil {
		sr.cancel()
	}
	<-sr.done
	sr.logger.Info("stats reporter stopped")
}

func (sr *StatsReporter) report() {
	jobs := sr.scheduler.Jobs()
	uptime := time.Since(sr.startTime).Seconds()

	var runningCount int
	snapshots := make([]jobSnapshot, 0, len(jobs))

	for _, job := range jobs {
		snap := jobSnapshot{
			Name:     job.Entry.Name,
			Schedule: job.Entry.Schedule,
			Sinks:    len(job.Entry.Sinks),
		}

		running, last := job.Snapshot()
		if running {
			runningCount++
			snap.Status = "running"
		} else {
			snap.Status = "idle"
		}

		if last != nil {
			snap.LastStatus = last.Status
			snap.LastDurationS = last.DurationSeconds
			snap.LastBytes = last.Bytes
			snap.LastChunks = last.Chunks
			snap.LastAt = last.Timestamp.Format(time.RFC3339)
		}

		snapshots = append(snapshots, snap)
	}

	sys := sr.monitor.Stats()

	sr.logger.Info("daemon stats",
		"uptime_s", uptime,
		"pipelines", len(jobs),
		"running", runningCount,
		"jobs", snapshots,
		"cpu_percent", sys.CPUPercent,
		"memory_percent", sys.MemoryPercent,
		"disk_percent", sys.DiskUsagePercent,
		"load_avg", sys.LoadAverage,
		"goroutines", sys.Goroutines,
	)
}
