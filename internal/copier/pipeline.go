// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package copier monta e executa pipelines de cópia: uma origem, um
// Readable e um ou mais destinos anexados via pipe, tudo dirigido por um
// event loop por execução.
package copier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nishisan-dev/n-stream/internal/config"
	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/s3util"
	"github.com/nishisan-dev/n-stream/internal/sink"
	"github.com/nishisan-dev/n-stream/internal/source"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// MaxCopyDuration define o tempo máximo que um pipeline pode rodar antes de
// ser cancelado.
const MaxCopyDuration = 24 * time.Hour

// Result resume uma execução de pipeline.
type Result struct {
	Status          string    `json:"status"` // "completed", "failed", "skipped"
	DurationSeconds float64   `json:"duration_seconds"`
	Bytes           int64     `json:"bytes"`
	Chunks          int64     `json:"chunks"`
	Timestamp       time.Time `json:"timestamp"`
}

// Run executa um pipeline até o end da origem e o finish de todos os
// destinos encerráveis, ou até o primeiro erro.
func Run(ctx context.Context, entry config.PipelineEntry, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	loop := eventloop.New()

	runCtx, cancel := context.WithTimeout(ctx, MaxCopyDuration)
	defer cancel()

	src, err := buildSource(runCtx, loop, entry.Source, logger)
	if err != nil {
		return nil, err
	}

	opts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithReadSize(int(entry.ReadSizeRaw)),
	}
	if entry.LowWaterSet {
		opts = append(opts, stream.WithLowWaterMark(int(entry.LowWaterRaw)))
	}
	if entry.Encoding != "" {
		opts = append(opts, stream.WithEncoding(entry.Encoding))
	}

	rd, err := stream.New(loop, src, opts...)
	if err != nil {
		return nil, err
	}

	var (
		bytes, chunks int64
		runErr        error
		srcEnded      bool
		finished      int
		endable       int
	)

	checkDone := func() {
		if srcEnded && finished == endable {
			cancel()
		}
	}

	for i := range entry.Sinks {
		dest, ends, err := buildSink(runCtx, loop, entry.Sinks[i], logger)
		if err != nil {
			return nil, fmt.Errorf("building sink %d: %w", i, err)
		}
		if ends {
			endable++
			dest.Once("finish", func(any) {
				finished++
				checkDone()
			})
		}
		dest.Once("error", func(arg any) {
			if err, ok := arg.(error); ok && runErr == nil {
				runErr = fmt.Errorf("sink error: %w", err)
			}
			cancel()
		})

		rd.Pipe(dest)
	}

	rd.Once("error", func(arg any) {
		if err, ok := arg.(error); ok && runErr == nil {
			runErr = fmt.Errorf("source error: %w", err)
		}
		cancel()
	})
	rd.Once("end", func(any) {
		srcEnded = true
		checkDone()
	})

	// Contabiliza via os data do loop de flow. Registrado depois dos Pipe:
	// com flowing ativo o listener não dispara a conversão para legacy.
	rd.On("data", func(arg any) {
		if c, ok := arg.(*stream.Chunk); ok {
			bytes += int64(c.Len())
			chunks++
		}
	})

	loop.Run(runCtx)

	duration := time.Since(start)
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr, "duration", duration)
		return &Result{
			Status:          "failed",
			DurationSeconds: duration.Seconds(),
			Bytes:           bytes,
			Chunks:          chunks,
			Timestamp:       time.Now(),
		}, runErr
	}
	if !srcEnded {
		runErr = fmt.Errorf("pipeline %q interrupted: %w", entry.Name, runCtx.Err())
		return &Result{
			Status:          "failed",
			DurationSeconds: duration.Seconds(),
			Bytes:           bytes,
			Chunks:          chunks,
			Timestamp:       time.Now(),
		}, runErr
	}

	logger.Info("pipeline completed",
		"bytes", bytes,
		"chunks", chunks,
		"duration", duration,
	)
	return &Result{
		Status:          "completed",
		DurationSeconds: duration.Seconds(),
		Bytes:           bytes,
		Chunks:          chunks,
		Timestamp:       time.Now(),
	}, nil
}

func buildSource(ctx context.Context, loop *eventloop.Loop, info config.SourceInfo, logger *slog.Logger) (stream.Source, error) {
	switch info.Type {
	case "file":
		return source.OpenFile(loop, info.Path, info.Compression, logger)
	case "s3":
		client, err := s3util.NewClient(ctx, info.Region, info.AccessKey, info.SecretKey)
		if err != nil {
			return nil, err
		}
		return source.NewS3RangeSource(ctx, loop, client, info.Bucket, info.Key, logger)
	}
	return nil, fmt.Errorf("unknown source type %q", info.Type)
}

// buildSink monta o destino e informa se ele é encerrável (emite finish no
// End). O stdout do processo não é.
func buildSink(ctx context.Context, loop *eventloop.Loop, info config.SinkInfo, logger *slog.Logger) (stream.Destination, bool, error) {
	var (
		dest stream.Destination
		ends bool
	)

	switch info.Type {
	case "stdout":
		dest = sink.NewStdoutSink(logger)
	case "file":
		if info.BufferSizeRaw > 0 {
			w, closeFn, err := sink.OpenFileWriter(info.Path, info.Compression)
			if err != nil {
				return nil, false, err
			}
			dest = sink.NewBufferedSink(loop, w, closeFn, info.BufferSizeRaw, logger.With("sink", info.Path))
		} else {
			fs, err := sink.NewFileSink(info.Path, info.Compression, logger)
			if err != nil {
				return nil, false, err
			}
			dest = fs
		}
		ends = true
	case "s3":
		client, err := s3util.NewClient(ctx, info.Region, info.AccessKey, info.SecretKey)
		if err != nil {
			return nil, false, err
		}
		dest = sink.NewS3Sink(ctx, loop, client, info.Bucket, info.Key, info.BufferSizeRaw, logger)
		ends = true
	default:
		return nil, false, fmt.Errorf("unknown sink type %q", info.Type)
	}

	if info.RateLimitRaw > 0 {
		dest = sink.NewThrottledSink(loop, dest, info.RateLimitRaw, logger)
	}
	return dest, ends, nil
}
