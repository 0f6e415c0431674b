// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import "errors"

// ErrFlowing sinaliza uma transição ilegal de modo: converter um stream para
// emissão push de data enquanto um flow de pipes está ativo perderia ou
// duplicaria bytes. A conversão legítima nesse cenário acontece no próprio
// loop de flow, depois que todos os pipes saem.
var ErrFlowing = errors.New("stream: cannot switch to data events while pipes are flowing")

// switchToLegacy converte o stream para o modo legacy de emissão push. A
// conversão é irreversível: o despacho de Read/Pause/Resume passa pela
// variante de modo, nunca volta para pull.
//
// Depois da conversão, cada readable dispara uma bomba interna que drena o
// buffer em eventos data enquanto não estiver pausado. Um readable é
// agendado via defer para escorvar a bomba.
func (r *Readable) switchToLegacy() {
	if r.mode != modePull {
		return
	}
	st := &r.state
	if st.flowing {
		panic(ErrFlowing)
	}

	r.mode = modeLegacy
	r.logger.Debug("switched to data-event mode")

	r.Emitter.On("readable", func(any) {
		r.legacyPump()
	})

	r.loop.Defer(func() {
		r.Emitter.Emit("readable", nil)
	})
}

// legacyPump drena o buffer em eventos data até Read devolver nil; o próprio
// engine re-arma needReadable nesse ponto.
func (r *Readable) legacyPump() {
	st := &r.state
	for !st.paused {
		c := r.engineRead(-1)
		if c == nil {
			return
		}
		r.Emitter.Emit("data", c)
	}
}

// Pause entra no modo legacy (se preciso) e seta o flag local de pausa.
// Num stream wrapped a pausa é encaminhada ao stream antigo.
func (r *Readable) Pause() {
	switch r.mode {
	case modeWrapped:
		r.oldPaused = true
		r.old.Pause()
	case modePull:
		r.switchToLegacy()
		r.state.paused = true
	case modeLegacy:
		r.state.paused = true
	}
}

// Resume limpa o flag de pausa e agenda um readable, haja ou não dados
// pendentes, para a bomba retomar. Num stream pull ainda não convertido,
// Resume efetua a conversão e então despacha.
func (r *Readable) Resume() {
	switch r.mode {
	case modeWrapped:
		r.oldPaused = false
		r.old.Resume()
	case modePull:
		r.switchToLegacy()
		// a bomba será escorvada pelo readable agendado na conversão
	case modeLegacy:
		r.state.paused = false
		// Re-escorva a bomba mesmo sem dados pendentes: o Read dela arma
		// needReadable e dispara o refill, destravando produtores pull.
		r.loop.Defer(func() {
			r.Emitter.Emit("readable", nil)
		})
	}
}
