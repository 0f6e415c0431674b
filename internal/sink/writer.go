// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package sink implementa destinos (stream.Destination) sobre arquivos,
// stdout, filas em memória com backpressure, rate limiting e S3.
package sink

import (
	"io"
	"log/slog"

	"github.com/nishisan-dev/n-stream/internal/events"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// WriterSink é o destino mais simples: escreve cada chunk sincronamente num
// io.Writer e nunca sinaliza backpressure. Erros de escrita viram eventos
// error no próprio sink.
type WriterSink struct {
	*events.Emitter

	w       io.Writer
	closeFn func() error
	std     bool
	ended   bool
	logger  *slog.Logger
}

// NewWriterSink cria um WriterSink. closeFn pode ser nil; std marca o sink
// como stream padrão do processo (nunca encerrado pelo pipe).
func NewWriterSink(w io.Writer, closeFn func() error, std bool, logger *slog.Logger) *WriterSink {
	return &WriterSink{
		Emitter: events.NewEmitter(),
		w:       w,
		closeFn: closeFn,
		std:     std,
		logger:  logger,
	}
}

// Write implementa stream.Destination.
func (s *WriterSink) Write(c *stream.Chunk) bool {
	if s.ended {
		s.logger.Warn("write after end discarded", "bytes", c.Len())
		return true
	}
	if _, err := s.w.Write(c.Bytes()); err != nil {
		s.Emit("error", err)
	}
	return true
}

// End encerra o sink: fecha o writer subjacente e emite finish.
func (s *WriterSink) End() {
	if s.ended {
		return
	}
	s.ended = true

	if s.closeFn != nil {
		if err := s.closeFn(); err != nil {
			s.Emit("error", err)
			return
		}
	}
	s.Emit("finish", nil)
}

// StandardStream implementa stream.StandardStream.
func (s *WriterSink) StandardStream() bool { return s.std }
