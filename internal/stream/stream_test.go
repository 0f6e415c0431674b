// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/events"
)

// scriptSource entrega uma sequência fixa de chunks e então EOF. Com async,
// cada entrega vai para o próximo turno do loop; sem, roda dentro do Pull.
// Também instrumenta o gate de "um Pull pendente" para os testes de
// invariante.
type scriptSource struct {
	loop    *eventloop.Loop
	replies [][]byte // nil marca EOF; depois do fim, só EOF
	errAt   int      // índice que entrega erro em vez de chunk (-1 desliga)
	err     error
	async   bool

	pulls          int
	outstanding    int
	maxOutstanding int
}

func newScriptSource(loop *eventloop.Loop, async bool, replies ...[]byte) *scriptSource {
	return &scriptSource{loop: loop, replies: replies, errAt: -1, async: async}
}

func (s *scriptSource) Pull(n int, deliver DeliverFunc) {
	idx := s.pulls
	s.pulls++
	s.outstanding++
	if s.outstanding > s.maxOutstanding {
		s.maxOutstanding = s.outstanding
	}

	fire := func() {
		s.outstanding--
		if s.errAt >= 0 && idx == s.errAt {
			deliver(s.err, nil)
			return
		}
		if idx >= len(s.replies) {
			deliver(nil, nil)
			return
		}
		reply := s.replies[idx]
		if reply == nil {
			deliver(nil, nil)
			return
		}
		deliver(nil, NewChunk(reply))
	}

	if s.async {
		s.loop.Defer(fire)
		return
	}
	fire()
}

// testSink é um Destination de memória com backpressure roteirizável:
// acceptFn decide, por índice de chunk, se Write devolve true.
type testSink struct {
	*events.Emitter

	chunks   [][]byte
	acceptFn func(i int) bool
	ended    bool
}

func newTestSink() *testSink {
	return &testSink{Emitter: events.NewEmitter()}
}

func (s *testSink) Write(c *Chunk) bool {
	i := len(s.chunks)
	s.chunks = append(s.chunks, append([]byte(nil), c.Bytes()...))
	if s.acceptFn != nil {
		return s.acceptFn(i)
	}
	return true
}

func (s *testSink) End() {
	s.ended = true
	s.Emit("finish", nil)
}

// stdSink simula um destino ligado ao stdout do processo.
type stdSink struct {
	*testSink
}

func (s *stdSink) StandardStream() bool { return true }

func mustNew(loop *eventloop.Loop, src Source, opts ...Option) *Readable {
	r, err := New(loop, src, opts...)
	if err != nil {
		panic(err)
	}
	return r
}
