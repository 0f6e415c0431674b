// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
)

// Producer síncrono que entrega "abc", "de" e EOF: a primeira leitura cruza
// a marca d'água com refills em cauda e devolve tudo de uma vez.
func TestReadable_SimpleDrain(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false, []byte("abc"), []byte("de"))
	r := mustNew(loop, src)

	ends := 0
	r.On("end", func(any) { ends++ })

	c := r.Read(-1)
	if c == nil || !bytes.Equal(c.Bytes(), []byte("abcde")) {
		t.Fatalf("expected abcde on first read, got %v", c)
	}

	if c := r.Read(-1); c != nil {
		t.Fatalf("expected nil on second read, got %q", c.Bytes())
	}
	loop.Drain()

	if ends != 1 {
		t.Fatalf("expected exactly one end, got %d", ends)
	}
}

func TestReadable_ExactSizeReads(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false, []byte{0x01, 0x02, 0x03, 0x04})
	r := mustNew(loop, src)

	ends := 0
	r.On("end", func(any) { ends++ })

	if c := r.Read(1); !bytes.Equal(c.Bytes(), []byte{0x01}) {
		t.Fatalf("read(1): got %v", c)
	}
	if c := r.Read(2); !bytes.Equal(c.Bytes(), []byte{0x02, 0x03}) {
		t.Fatalf("read(2): got %v", c)
	}
	// pedido maior que o restante com EOF sinalizado entrega o que sobrou
	if c := r.Read(5); !bytes.Equal(c.Bytes(), []byte{0x04}) {
		t.Fatalf("read(5): got %v", c)
	}
	if c := r.Read(-1); c != nil {
		t.Fatalf("expected nil after all bytes consumed, got %v", c)
	}
	loop.Drain()

	if ends != 1 {
		t.Fatalf("expected exactly one end, got %d", ends)
	}
}

// Producer síncrono satisfaz uma leitura curta na mesma chamada, sem emitir
// readable para o chunk.
func TestReadable_SynchronousPull(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false, []byte("xy"))
	r := mustNew(loop, src)

	readables := 0
	r.On("readable", func(any) { readables++ })

	c := r.Read(2)
	if c == nil || !bytes.Equal(c.Bytes(), []byte("xy")) {
		t.Fatalf("expected xy in the same call, got %v", c)
	}
	loop.Drain()

	if readables != 0 {
		t.Fatalf("synchronous delivery must not emit readable, got %d", readables)
	}
}

func TestReadable_ReadZero(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("zz"))
	r := mustNew(loop, src)

	if c := r.Read(0); c != nil {
		t.Fatalf("read(0) must return nil, got %v", c)
	}
	if !r.state.needReadable {
		t.Fatal("read(0) must arm needReadable")
	}
}

func TestReadable_ReadAllEmptyNotEnded(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("zz"))
	r := mustNew(loop, src)

	if c := r.Read(-1); c != nil {
		t.Fatalf("read() on empty unended stream must return nil, got %v", c)
	}
}

// Pedido maior que o buffer de um stream não-encerrado devolve nil e arma
// needReadable; o readable chega quando os dados assíncronos aparecem.
func TestReadable_ShortBufferArmsReadable(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("abcd"))
	r := mustNew(loop, src)

	readables := 0
	r.On("readable", func(any) { readables++ })

	if c := r.Read(10); c != nil {
		t.Fatalf("expected nil, got %v", c)
	}
	if !r.state.needReadable {
		t.Fatal("needReadable must be armed")
	}

	loop.Drain()

	if readables == 0 {
		t.Fatal("expected readable after async delivery")
	}
	c := r.Read(4)
	if c == nil || !bytes.Equal(c.Bytes(), []byte("abcd")) {
		t.Fatalf("expected abcd after readable, got %v", c)
	}
}

// Invariante: nunca mais de um Pull pendente, mesmo com leituras repetidas
// antes da entrega.
func TestReadable_SingleOutstandingPull(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("abc"))
	r := mustNew(loop, src)

	r.Read(-1)
	r.Read(-1)
	r.Read(3)

	if src.pulls != 1 {
		t.Fatalf("expected a single Pull before delivery, got %d", src.pulls)
	}
	if src.maxOutstanding != 1 {
		t.Fatalf("expected at most one outstanding Pull, got %d", src.maxOutstanding)
	}

	loop.Drain()
	if src.maxOutstanding != 1 {
		t.Fatalf("outstanding Pull gate broken after deliveries: %d", src.maxOutstanding)
	}
}

// Conservação: a concatenação das leituras reproduz exatamente a sequência
// produzida, com entregas assíncronas.
func TestReadable_ConservationAsync(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("foo"), []byte("bar"), []byte("baz"))
	r := mustNew(loop, src, WithLowWaterMark(0))

	var out []byte
	ended := false
	r.On("readable", func(any) {
		for {
			c := r.Read(-1)
			if c == nil {
				return
			}
			out = append(out, c.Bytes()...)
		}
	})
	r.On("end", func(any) { ended = true })

	// primeira leitura arma needReadable e dispara o primeiro Pull
	if c := r.Read(-1); c != nil {
		out = append(out, c.Bytes()...)
	}
	loop.Drain()

	if !ended {
		t.Fatal("expected end after EOF")
	}
	if string(out) != "foobarbaz" {
		t.Fatalf("conservation broken: got %q", out)
	}
}

func TestReadable_EndEmittedOnce(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, false)
	r := mustNew(loop, src)

	ends := 0
	r.On("end", func(any) { ends++ })

	// múltiplas leituras após EOF disparam o finalizador várias vezes;
	// o end continua único
	r.Read(-1)
	r.Read(-1)
	r.Read(5)
	loop.Drain()
	r.Read(-1)
	loop.Drain()

	if ends != 1 {
		t.Fatalf("end must be emitted exactly once, got %d", ends)
	}
}

func TestReadable_SourceError(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true)
	src.errAt = 0
	src.err = errors.New("disk on fire")
	r := mustNew(loop, src)

	var got error
	r.On("error", func(arg any) { got, _ = arg.(error) })

	r.Read(-1)
	loop.Drain()

	if got == nil || got.Error() != "disk on fire" {
		t.Fatalf("expected producer error surfaced, got %v", got)
	}
}

// O Source default sinaliza not-implemented no turno seguinte.
func TestReadable_DefaultSourceErrors(t *testing.T) {
	loop := eventloop.New()
	r := mustNew(loop, nil)

	var got error
	r.On("error", func(arg any) { got, _ = arg.(error) })

	if c := r.Read(-1); c != nil {
		t.Fatalf("expected nil read, got %v", c)
	}
	if got != nil {
		t.Fatal("error must not be synchronous")
	}
	loop.Drain()

	if !errors.Is(got, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", got)
	}
}

// Refill proativo: com o buffer abaixo da marca d'água, uma leitura parcial
// dispara Pull mesmo podendo ser servida do buffer.
func TestReadable_ProactiveRefillBelowWatermark(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("abcdefgh"), []byte("ijkl"))
	r := mustNew(loop, src, WithLowWaterMark(6))

	r.Read(-1) // arma e dispara o primeiro Pull
	loop.Drain()

	// buffer tem 8 bytes; ler 4 deixa 4 <= lwm → novo Pull deve sair
	pullsBefore := src.pulls
	c := r.Read(4)
	if c == nil || !bytes.Equal(c.Bytes(), []byte("abcd")) {
		t.Fatalf("expected abcd, got %v", c)
	}
	if src.pulls != pullsBefore+1 {
		t.Fatalf("expected proactive refill below watermark, pulls=%d", src.pulls)
	}
}

// Marca d'água zero explícita desliga o refill antecipado.
func TestReadable_ZeroWatermarkHonored(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("abcdefgh"))
	r := mustNew(loop, src, WithLowWaterMark(0))

	r.Read(-1)
	loop.Drain()

	pullsBefore := src.pulls
	c := r.Read(4)
	if c == nil {
		t.Fatal("expected data")
	}
	// restam 4 bytes > 0 = lwm; nenhum refill deve sair
	if src.pulls != pullsBefore {
		t.Fatalf("expected no refill with zero watermark, pulls went %d -> %d", pullsBefore, src.pulls)
	}
}

func TestReadable_LengthAccounting(t *testing.T) {
	loop := eventloop.New()
	src := newScriptSource(loop, true, []byte("abc"), []byte("defg"))
	r := mustNew(loop, src, WithLowWaterMark(0))

	r.Read(-1)
	loop.Drain()
	r.Read(1)
	loop.Drain()

	if r.Length() != listLength(&r.state.buffer) {
		t.Fatalf("length %d does not match buffer contents %d", r.Length(), listLength(&r.state.buffer))
	}
}

func TestReadable_InvalidOptions(t *testing.T) {
	loop := eventloop.New()
	if _, err := New(loop, nil, WithReadSize(0)); !errors.Is(err, ErrInvalidReadSize) {
		t.Fatalf("expected ErrInvalidReadSize, got %v", err)
	}
	if _, err := New(loop, nil, WithLowWaterMark(-1)); !errors.Is(err, ErrInvalidLowWaterMark) {
		t.Fatalf("expected ErrInvalidLowWaterMark, got %v", err)
	}
}

func TestReadable_ReadSizeHintReachesSource(t *testing.T) {
	loop := eventloop.New()
	var hint int
	src := SourceFunc(func(n int, deliver DeliverFunc) {
		hint = n
		deliver(nil, nil)
	})
	r := mustNew(loop, src, WithReadSize(4096))

	r.Read(-1)
	if hint != 4096 {
		t.Fatalf("expected read size hint 4096, got %d", hint)
	}
}
