// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import "github.com/nishisan-dev/n-stream/internal/events"

// Destination é o contrato observável de um sink para o pipe engine.
//
// Write retorna false para sinalizar backpressure: "bufferizei; não envie
// mais até eu emitir drain". O engine então suspende o loop de flow e
// subscreve drain uma única vez. Destinos são emprestados, nunca possuídos:
// um mesmo destino pode receber pipe de várias origens, e as subscrições do
// engine (drain, unpipe) são escopadas para não perturbar outras origens.
//
// Eventos que um Destination recebe do engine: pipe (com a origem como
// argumento, no attach) e unpipe (com a origem, no detach). Eventos que o
// engine consome do destino: drain e unpipe (este para desfazer a subscrição
// de end da origem desanexada).
type Destination interface {
	Write(c *Chunk) bool
	End()

	On(event string, fn events.Handler) *events.Listener
	Once(event string, fn events.Handler) *events.Listener
	RemoveListener(l *events.Listener)
	Emit(event string, arg any) bool
}

// StandardStream marca destinos ligados aos streams padrão do processo
// (stdout, stderr). O pipe engine nunca encerra esses destinos no end da
// origem, mesmo sem WithoutEnd.
type StandardStream interface {
	StandardStream() bool
}

func isStandardStream(d Destination) bool {
	s, ok := d.(StandardStream)
	return ok && s.StandardStream()
}
