// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package source implementa produtores (stream.Source) sobre arquivos,
// leitores comprimidos e objetos S3. Todos entregam assincronamente via
// Loop.Post: o I/O roda numa goroutine própria, o estado do stream não.
package source

import (
	"io"
	"log/slog"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// ReaderSource adapta um io.Reader ao protocolo de produtor. Cada Pull lê
// até n bytes numa goroutine e posta a entrega no loop do stream. O engine
// garante um único Pull pendente, então não há leituras concorrentes sobre r.
type ReaderSource struct {
	loop   *eventloop.Loop
	r      io.Reader
	closer io.Closer
	logger *slog.Logger
}

// NewReaderSource cria um ReaderSource. closer pode ser nil.
func NewReaderSource(loop *eventloop.Loop, r io.Reader, closer io.Closer, logger *slog.Logger) *ReaderSource {
	return &ReaderSource{loop: loop, r: r, closer: closer, logger: logger}
}

// Pull implementa stream.Source.
func (s *ReaderSource) Pull(n int, deliver stream.DeliverFunc) {
	buf := make([]byte, n)
	go func() {
		rn, err := s.read(buf)
		s.loop.Post(func() {
			switch {
			case rn > 0:
				deliver(nil, stream.NewChunk(buf[:rn]))
			case err == io.EOF:
				s.close()
				deliver(nil, nil)
			case err != nil:
				s.close()
				deliver(err, nil)
			default:
				deliver(nil, nil)
			}
		})
	}()
}

// read itera até obter dados ou um erro; Read(0, nil) de leitores educados
// não vira EOF espúrio.
func (s *ReaderSource) read(buf []byte) (int, error) {
	for {
		rn, err := s.r.Read(buf)
		if rn > 0 || err != nil {
			return rn, err
		}
	}
}

func (s *ReaderSource) close() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		s.logger.Warn("closing source reader", "error", err)
	}
	s.closer = nil
}
