// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"io"
	"log/slog"
	"sync"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/events"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// BufferedSink é um destino com fila em memória limitada e backpressure
// real: Write aceita sempre, mas retorna false quando os bytes em voo
// atingem a capacidade; drain é emitido quando a fila esvazia por completo.
//
// A escrita física roda numa goroutine própria (o writer pode ser lento —
// disco, pipe de upload); a contabilidade de bytes em voo e a emissão de
// drain acontecem no loop do stream, postadas pela goroutine de escrita.
type BufferedSink struct {
	*events.Emitter

	loop    *eventloop.Loop
	w       io.Writer
	closeFn func() error
	logger  *slog.Logger

	capacity int64

	// estado do loop — tocado apenas em turnos
	pending   int64
	needDrain bool
	ended     bool

	// fila compartilhada com a goroutine de escrita
	mu       sync.Mutex
	notEmpty sync.Cond
	queue    [][]byte
	closed   bool

	done chan struct{}
}

// NewBufferedSink cria o sink e inicia a goroutine de escrita. closeFn pode
// ser nil; é chamado depois que a fila drena no End.
func NewBufferedSink(loop *eventloop.Loop, w io.Writer, closeFn func() error, capacity int64, logger *slog.Logger) *BufferedSink {
	s := &BufferedSink{
		Emitter:  events.NewEmitter(),
		loop:     loop,
		w:        w,
		closeFn:  closeFn,
		logger:   logger,
		capacity: capacity,
		done:     make(chan struct{}),
	}
	s.notEmpty.L = &s.mu

	go s.writeLoop()
	return s
}

// Write implementa stream.Destination. Nunca bloqueia; sinaliza
// backpressure pelo retorno.
func (s *BufferedSink) Write(c *stream.Chunk) bool {
	if s.ended {
		s.logger.Warn("write after end discarded", "bytes", c.Len())
		return true
	}

	data := c.Bytes()
	s.pending += int64(len(data))

	s.mu.Lock()
	s.queue = append(s.queue, data)
	s.notEmpty.Signal()
	s.mu.Unlock()

	if s.pending >= s.capacity {
		s.needDrain = true
		return false
	}
	return true
}

// End fecha a fila; a goroutine de escrita drena o restante, executa
// closeFn e o sink emite finish (ou error) no loop.
func (s *BufferedSink) End() {
	if s.ended {
		return
	}
	s.ended = true

	s.mu.Lock()
	s.closed = true
	s.notEmpty.Signal()
	s.mu.Unlock()
}

// Pending retorna os bytes aceitos e ainda não escritos. Só faz sentido
// lido de dentro do loop.
func (s *BufferedSink) Pending() int64 { return s.pending }

func (s *BufferedSink) writeLoop() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.notEmpty.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			s.finish(nil)
			return
		}
		data := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		_, err := s.w.Write(data)
		if err != nil {
			s.finish(err)
			return
		}

		n := int64(len(data))
		s.loop.Post(func() {
			s.pending -= n
			if s.pending == 0 && s.needDrain {
				s.needDrain = false
				s.Emit("drain", nil)
			}
		})
	}
}

func (s *BufferedSink) finish(writeErr error) {
	var closeErr error
	if s.closeFn != nil {
		closeErr = s.closeFn()
	}

	s.loop.Post(func() {
		s.pending = 0
		switch {
		case writeErr != nil:
			s.Emit("error", writeErr)
		case closeErr != nil:
			s.Emit("error", closeErr)
		default:
			s.Emit("finish", nil)
		}
	})
}
