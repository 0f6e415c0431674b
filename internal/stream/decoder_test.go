// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"testing"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
)

func TestTextDecoder_PassThrough(t *testing.T) {
	d, err := newTextDecoder("utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := d.Write([]byte("plain ascii"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plain ascii" {
		t.Fatalf("expected pass-through, got %q", out)
	}
}

func TestTextDecoder_SplitCodePoint(t *testing.T) {
	d, err := newTextDecoder("utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "á" = 0xC3 0xA1, partido entre dois chunks
	first, err := d.Write([]byte{'o', 'l', 0xC3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "ol" {
		t.Fatalf("partial sequence must be withheld, got %q", first)
	}

	second, err := d.Write([]byte{0xA1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != "á" {
		t.Fatalf("expected completed code point, got %q", second)
	}
}

func TestTextDecoder_WholeChunkWithheld(t *testing.T) {
	d, _ := newTextDecoder("utf-8")

	// chunk composto só pelo primeiro byte de uma sequência
	out, err := d.Write([]byte{0xC3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty fragment, got %q", out)
	}

	out, err = d.Write([]byte{0xA9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "é" {
		t.Fatalf("expected é, got %q", out)
	}
}

func TestTextDecoder_Latin1(t *testing.T) {
	d, err := newTextDecoder("ISO-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := d.Write([]byte{0xE9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "é" {
		t.Fatalf("expected é from latin-1 byte, got %q", out)
	}
}

func TestTextDecoder_UnknownLabel(t *testing.T) {
	if _, err := newTextDecoder("definitely-not-an-encoding"); err == nil {
		t.Fatal("expected error for unknown encoding label")
	}
}

func TestReadable_EncodingOptionUnknownLabel(t *testing.T) {
	loop := eventloop.New()
	if _, err := New(loop, nil, WithEncoding("nope-8")); err == nil {
		t.Fatal("expected construction error for unknown encoding")
	}
}

func TestReadable_TextMode(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false, []byte("hi"))
	r := mustNew(loop, src, WithEncoding("utf-8"))

	c := r.Read(-1)
	if c == nil || !c.IsText() {
		t.Fatalf("expected a text chunk, got %v", c)
	}
	if c.Text() != "hi" {
		t.Fatalf("expected hi, got %q", c.Text())
	}
}

// Um code point partido entre dois chunks do produtor chega inteiro ao
// consumidor depois do segundo chunk.
func TestReadable_TextModeSplitCodePoint(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false, []byte{'o', 'l', 0xC3}, []byte{0xA1})
	r := mustNew(loop, src, WithEncoding("utf-8"))

	c := r.Read(-1)
	if c == nil {
		t.Fatal("expected text available")
	}
	if c.Text() != "olá" {
		t.Fatalf("expected olá, got %q", c.Text())
	}
}

func TestReadable_ConservationTextMode(t *testing.T) {
	loop := eventloop.New()
	// "ç" (0xC3 0xA7) partido entre entregas assíncronas
	src := newScriptSource(loop, true, []byte("ma"), []byte{0xC3}, []byte{0xA7}, []byte("as"))
	r := mustNew(loop, src, WithEncoding("utf-8"), WithLowWaterMark(0))

	var out string
	ended := false
	r.On("readable", func(any) {
		for {
			c := r.Read(-1)
			if c == nil {
				return
			}
			out += c.Text()
		}
	})
	r.On("end", func(any) { ended = true })

	r.Read(-1)
	loop.Drain()

	if !ended {
		t.Fatal("expected end")
	}
	if out != "maças" {
		t.Fatalf("expected maças, got %q", out)
	}
}
