// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import "github.com/nishisan-dev/n-stream/internal/events"

// pipeOptions configura um Pipe.
type pipeOptions struct {
	end       bool
	chunkSize int // n passado a Read pelo loop de flow; < 0 = sem limite
}

// PipeOption configura um Pipe individual.
type PipeOption func(*pipeOptions)

// WithoutEnd impede que o end da origem encerre o destino.
func WithoutEnd() PipeOption {
	return func(o *pipeOptions) { o.end = false }
}

// WithPipeChunkSize limita o tamanho dos chunks puxados pelo loop de flow.
func WithPipeChunkSize(n int) PipeOption {
	return func(o *pipeOptions) { o.chunkSize = n }
}

// Pipe anexa dest ao conjunto de destinos e inicia (ou mantém) o modo
// flowing. O primeiro Pipe agenda o loop de flow para o próximo turno.
// Retorna dest para encadeamento.
func (r *Readable) Pipe(dest Destination, opts ...PipeOption) Destination {
	po := pipeOptions{end: true, chunkSize: -1}
	for _, opt := range opts {
		opt(&po)
	}

	st := &r.state
	st.pipes = append(st.pipes, dest)
	r.logger.Debug("pipe attached", "pipes", len(st.pipes))

	if po.end && !isStandardStream(dest) {
		// end da origem encerra o destino; se ESTA origem for desanexada,
		// o unpipe do destino desfaz só essa subscrição.
		var endL, unpipeL *events.Listener
		endL = r.Once("end", func(any) {
			dest.End()
		})
		unpipeL = dest.On("unpipe", func(arg any) {
			if src, ok := arg.(*Readable); ok && src == r {
				r.RemoveListener(endL)
				dest.RemoveListener(unpipeL)
			}
		})
	}

	dest.Emit("pipe", r)

	if !st.flowing {
		st.flowing = true
		r.loop.Defer(func() {
			flow(r, po)
		})
	}

	return dest
}

// Unpipe remove dest do conjunto de destinos; nil remove todos. A remoção
// não desliga flowing por si só — o loop de flow observa a lista vazia na
// próxima iteração.
func (r *Readable) Unpipe(dest Destination) *Readable {
	st := &r.state

	if dest == nil {
		pipes := st.pipes
		st.pipes = nil
		for _, d := range pipes {
			d.Emit("unpipe", r)
		}
		return r
	}

	for i, d := range st.pipes {
		if d == dest {
			st.pipes = append(st.pipes[:i], st.pipes[i+1:]...)
			dest.Emit("unpipe", r)
			break
		}
	}
	return r
}

// flow é o loop do modo flowing: puxa chunks da origem e os replica em cada
// destino, na mesma ordem para todos. Uma única obrigação de drain de
// qualquer destino suspende o loop até todos os drains dispararem. Recebe a
// origem explicitamente — nunca um receptor implícito.
func flow(src *Readable, po pipeOptions) {
	st := &src.state
	needDrain := 0

	for len(st.pipes) > 0 {
		c := src.Read(po.chunkSize)
		if c == nil {
			break
		}

		// Snapshot: um Write pode desanexar destinos no meio do fan-out.
		pipes := make([]Destination, len(st.pipes))
		copy(pipes, st.pipes)

		for _, dest := range pipes {
			if dest.Write(c) {
				continue
			}
			needDrain++
			dest.Once("drain", func(any) {
				needDrain--
				if needDrain == 0 {
					src.loop.Defer(func() {
						flow(src, po)
					})
				}
			})
		}

		src.Emitter.Emit("data", c)

		if needDrain > 0 {
			// Suspenso até todos os destinos drenarem.
			return
		}
	}

	if len(st.pipes) == 0 {
		st.flowing = false
		if src.ListenerCount("data") > 0 && src.mode == modePull {
			src.switchToLegacy()
		}
		return
	}

	// Ficou sem dados mas ainda há pipes: aguarda o próximo readable.
	src.Once("readable", func(any) {
		flow(src, po)
	})
}
