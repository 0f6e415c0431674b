// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/events"
)

// LegacyStream é a superfície mínima de um push-stream histórico que Wrap
// adapta à interface pull. data carrega *Chunk, []byte ou string; end não
// tem payload.
type LegacyStream interface {
	On(event string, fn events.Handler) *events.Listener
	Pause()
	Resume()
}

// eventos do stream antigo espelhados no adaptador.
var wrapForwarded = []string{"error", "close", "destroy", "pause", "resume"}

// Wrap adapta um push-stream externo à interface pull deste pacote.
//
// Os data do stream antigo entram no buffer e emitem readable; acima da
// marca d'água o antigo é pausado, e o Read do adaptador o retoma quando o
// buffer baixa. O modo wrapped tem um caminho de leitura próprio, sem
// produtor e sem o gate de reading.
func Wrap(loop *eventloop.Loop, old LegacyStream, opts ...Option) (*Readable, error) {
	r, err := New(loop, nil, opts...)
	if err != nil {
		return nil, err
	}
	r.mode = modeWrapped
	r.old = old
	st := &r.state

	old.On("end", func(any) {
		st.ended = true
		if st.length == 0 {
			r.endReadable()
		}
	})

	old.On("data", func(arg any) {
		c := coerceChunk(arg)
		if c == nil || c.Len() == 0 {
			return
		}
		if st.decoder != nil {
			decoded, err := st.decoder.Write(c.Bytes())
			if err != nil {
				r.Emit("error", err)
				return
			}
			if decoded == "" {
				return
			}
			c = NewTextChunk(decoded)
		}
		st.buffer.push(c)
		st.length += c.Len()

		r.Emitter.Emit("readable", nil)

		if st.length > st.lowWaterMark && !r.oldPaused {
			r.oldPaused = true
			old.Pause()
		}
	})

	for _, ev := range wrapForwarded {
		ev := ev
		old.On(ev, func(arg any) {
			r.Emitter.Emit(ev, arg)
		})
	}

	return r, nil
}

// wrappedRead serve leituras do buffer com a semântica usual de take, sem
// tocar no protocolo de produtor. Quando o buffer baixa da marca d'água e o
// antigo está pausado, ele é retomado.
func (r *Readable) wrappedRead(n int) *Chunk {
	st := &r.state

	avail := st.plan(n)
	var c *Chunk
	if avail > 0 {
		c = st.buffer.take(avail, st.length, st.decoder != nil)
	}

	if c == nil || c.Len() == 0 {
		c = nil
		if st.ended && st.length == 0 {
			r.endReadable()
		}
	} else {
		st.length -= c.Len()
	}

	if st.length <= st.lowWaterMark && r.oldPaused {
		r.oldPaused = false
		r.old.Resume()
	}

	return c
}

func coerceChunk(arg any) *Chunk {
	switch v := arg.(type) {
	case *Chunk:
		return v
	case []byte:
		return NewChunk(v)
	case string:
		return NewChunk([]byte(v))
	}
	return nil
}
