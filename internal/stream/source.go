// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"errors"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
)

// ErrNotImplemented é entregue pelo Source default quando um Readable é
// criado sem produtor.
var ErrNotImplemented = errors.New("stream: source Pull not implemented")

// DeliverFunc é o callback de entrega do produtor. O contrato é estrito:
// exatamente uma invocação por Pull, síncrona (antes de Pull retornar) ou
// assíncrona. chunk nil ou de tamanho zero sinaliza EOF; err não-nil é
// emitido como evento error (sem marcar EOF nem emitir end).
type DeliverFunc func(err error, chunk *Chunk)

// Source é o produtor de dados subjacente de um Readable.
//
// O engine garante no máximo um Pull pendente por vez. n é uma dica do volume
// desejado; o produtor pode entregar menos. Entregas assíncronas devem
// ocorrer no loop do stream (via Loop.Post) — todo o estado do Readable
// pertence a esse loop.
type Source interface {
	Pull(n int, deliver DeliverFunc)
}

// SourceFunc adapta uma função ao contrato de Source.
type SourceFunc func(n int, deliver DeliverFunc)

// Pull implementa Source.
func (f SourceFunc) Pull(n int, deliver DeliverFunc) { f(n, deliver) }

// notImplementedSource é o produtor default: sinaliza erro no próximo turno,
// nunca sincronamente.
type notImplementedSource struct {
	loop *eventloop.Loop
}

func (s notImplementedSource) Pull(n int, deliver DeliverFunc) {
	s.loop.Defer(func() {
		deliver(ErrNotImplemented, nil)
	})
}
