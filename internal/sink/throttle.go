// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/events"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// maxBurstSize é o teto de burst do token bucket (256KB), alinhado ao
// tamanho típico de chunk dos pipelines.
const maxBurstSize = 256 * 1024

// ThrottledSink decora outro destino com rate limiting por token bucket.
// Quando não há tokens para o chunk, o sink devolve false, agenda a escrita
// para quando o bucket reabastecer e emite drain depois dela — o
// backpressure do pipe vira o mecanismo de pacing.
type ThrottledSink struct {
	*events.Emitter

	loop    *eventloop.Loop
	next    stream.Destination
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottledSink cria um ThrottledSink com a taxa máxima em bytes/segundo.
// Se bytesPerSec <= 0, retorna o destino original sem throttle (bypass).
func NewThrottledSink(loop *eventloop.Loop, next stream.Destination, bytesPerSec int64, logger *slog.Logger) stream.Destination {
	if bytesPerSec <= 0 {
		return next
	}

	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}

	s := &ThrottledSink{
		Emitter: events.NewEmitter(),
		loop:    loop,
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		logger:  logger,
	}

	// finish e error do destino interno aparecem no decorator.
	next.On("finish", func(arg any) { s.Emit("finish", arg) })
	next.On("error", func(arg any) { s.Emit("error", arg) })

	return s
}

// Write implementa stream.Destination.
func (s *ThrottledSink) Write(c *stream.Chunk) bool {
	// Chunks maiores que o burst consomem no máximo o burst; o excedente
	// passa sem token, mantendo a taxa aproximada sem reservas enormes.
	tokens := c.Len()
	if tokens > s.limiter.Burst() {
		tokens = s.limiter.Burst()
	}

	now := time.Now()
	if s.limiter.AllowN(now, tokens) {
		return s.writeThrough(c)
	}

	res := s.limiter.ReserveN(now, tokens)
	delay := res.Delay()
	s.logger.Debug("throttling chunk", "bytes", c.Len(), "delay", delay)

	time.AfterFunc(delay, func() {
		s.loop.Post(func() {
			if s.writeThrough(c) {
				s.Emit("drain", nil)
			} else {
				s.next.Once("drain", func(any) {
					s.Emit("drain", nil)
				})
			}
		})
	})
	return false
}

// writeThrough repassa o chunk; se o destino interno sinalizar
// backpressure, o drain dele é re-emitido por este sink.
func (s *ThrottledSink) writeThrough(c *stream.Chunk) bool {
	if s.next.Write(c) {
		return true
	}
	s.next.Once("drain", func(any) {
		s.Emit("drain", nil)
	})
	return false
}

// End encerra o destino interno.
func (s *ThrottledSink) End() {
	s.next.End()
}
