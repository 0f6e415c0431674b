// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package eventloop

import (
	"context"
	"testing"
	"time"
)

func TestLoop_DrainRunsInOrder(t *testing.T) {
	l := New()

	var got []int
	l.Post(func() { got = append(got, 1) })
	l.Post(func() { got = append(got, 2) })
	l.Post(func() { got = append(got, 3) })

	if ran := l.Drain(); ran != 3 {
		t.Fatalf("expected 3 tasks ran, got %d", ran)
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("tasks out of order: %v", got)
		}
	}
}

func TestLoop_DeferRunsAfterCurrentTurn(t *testing.T) {
	l := New()

	var got []string
	l.Post(func() {
		l.Defer(func() { got = append(got, "deferred") })
		got = append(got, "turn")
	})
	l.Drain()

	if len(got) != 2 || got[0] != "turn" || got[1] != "deferred" {
		t.Fatalf("expected [turn deferred], got %v", got)
	}
}

func TestLoop_NestedDefers(t *testing.T) {
	l := New()

	depth := 0
	l.Defer(func() {
		depth = 1
		l.Defer(func() {
			depth = 2
			l.Defer(func() { depth = 3 })
		})
	})
	l.Drain()

	if depth != 3 {
		t.Fatalf("expected nested defers to run to depth 3, got %d", depth)
	}
}

func TestLoop_DrainEmpty(t *testing.T) {
	l := New()
	if ran := l.Drain(); ran != 0 {
		t.Fatalf("expected 0 tasks on empty loop, got %d", ran)
	}
}

func TestLoop_Pending(t *testing.T) {
	l := New()
	l.Post(func() {})
	l.Post(func() {})
	if l.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", l.Pending())
	}
	l.Drain()
	if l.Pending() != 0 {
		t.Fatalf("expected 0 pending after drain, got %d", l.Pending())
	}
}

func TestLoop_RunProcessesCrossGoroutinePosts(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Post(func() {
			close(done)
		})
	}()

	go func() {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		cancel()
	}()

	l.Run(ctx)

	select {
	case <-done:
	default:
		t.Fatal("posted task did not run before Run returned")
	}
}

func TestLoop_RunDrainsTasksPendingAtCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	ran := false
	l.Post(func() {
		l.Post(func() { ran = true })
		cancel()
	})

	l.Run(ctx)

	if !ran {
		t.Fatal("task enqueued before cancel should still run")
	}
}
