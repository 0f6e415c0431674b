// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/logging"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

func testLogger() *slog.Logger {
	return logging.NewNopLogger()
}

// waitFor drena o loop até cond valer ou o deadline estourar. As postagens
// vêm da goroutine de escrita, então o teste precisa de polling.
func waitFor(t *testing.T, loop *eventloop.Loop, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		loop.Drain()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// syncWriter é um bytes.Buffer seguro para a goroutine de escrita.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// gateWriter bloqueia cada Write até o gate abrir.
type gateWriter struct {
	gate <-chan struct{}
	syncWriter
}

func (w *gateWriter) Write(p []byte) (int, error) {
	<-w.gate
	return w.syncWriter.Write(p)
}

func TestBufferedSink_WritesAllAndFinishes(t *testing.T) {
	loop := eventloop.New()
	w := &syncWriter{}
	closed := false
	s := NewBufferedSink(loop, w, func() error { closed = true; return nil }, 1024, testLogger())

	finished := false
	s.Once("finish", func(any) { finished = true })

	s.Write(stream.NewChunk([]byte("hello ")))
	s.Write(stream.NewChunk([]byte("world")))
	s.End()

	waitFor(t, loop, "finish", func() bool { return finished })

	if w.String() != "hello world" {
		t.Fatalf("expected hello world, got %q", w.String())
	}
	if !closed {
		t.Fatal("closeFn must run before finish")
	}
}

func TestBufferedSink_BackpressureAndDrain(t *testing.T) {
	loop := eventloop.New()
	gate := make(chan struct{})
	w := &gateWriter{gate: gate}
	s := NewBufferedSink(loop, w, nil, 4, testLogger())

	// 4 bytes atingem a capacidade: backpressure
	if ok := s.Write(stream.NewChunk([]byte("abcd"))); ok {
		t.Fatal("expected backpressure at capacity")
	}

	drained := false
	s.Once("drain", func(any) { drained = true })

	// com o writer travado, nada drena
	loop.Drain()
	if drained {
		t.Fatal("drain must not fire while the writer is blocked")
	}

	close(gate)
	waitFor(t, loop, "drain", func() bool { return drained })

	if w.String() != "abcd" {
		t.Fatalf("expected abcd written, got %q", w.String())
	}
}

func TestBufferedSink_SmallWritesDoNotBackpressure(t *testing.T) {
	loop := eventloop.New()
	w := &syncWriter{}
	s := NewBufferedSink(loop, w, nil, 1024, testLogger())

	if ok := s.Write(stream.NewChunk([]byte("tiny"))); !ok {
		t.Fatal("write below capacity must not signal backpressure")
	}
}

func TestBufferedSink_ErrorSurfaces(t *testing.T) {
	loop := eventloop.New()
	s := NewBufferedSink(loop, failingWriter{}, nil, 1024, testLogger())

	var got error
	s.Once("error", func(arg any) { got, _ = arg.(error) })

	s.Write(stream.NewChunk([]byte("boom")))

	waitFor(t, loop, "error", func() bool { return got != nil })
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errWriteFailed
}

var errWriteFailed = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "write failed" }

func TestBufferedSink_EndIdempotent(t *testing.T) {
	loop := eventloop.New()
	w := &syncWriter{}
	s := NewBufferedSink(loop, w, nil, 1024, testLogger())

	finishes := 0
	s.On("finish", func(any) { finishes++ })

	s.End()
	s.End()

	waitFor(t, loop, "finish", func() bool { return finishes > 0 })
	loop.Drain()

	if finishes != 1 {
		t.Fatalf("expected a single finish, got %d", finishes)
	}
}
