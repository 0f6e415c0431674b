// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package events implementa um despachante de eventos nomeados com semântica
// once e remoção escopada por handle. Os eventos de um stream (readable, data,
// drain, end) são sinais de controle, não meras notificações: a ordem de
// entrega e o exactly-once de Once importam para o protocolo de piping.
package events

import "sync"

// Handler é um callback registrado para um evento. O argumento carrega o
// payload do evento (chunk, erro, stream de origem) ou nil.
type Handler func(arg any)

// Listener é o handle devolvido por On/Once. Remoção é feita pelo handle,
// não por comparação de função.
type Listener struct {
	event string
	fn    Handler
	once  bool

	// removed evita dupla execução quando um Once é removido durante o
	// próprio Emit que o dispararia.
	removed bool
}

// Emitter mantém as listas de listeners por nome de evento.
// Emit usa um snapshot da lista: listeners registrados durante o próprio
// despacho só disparam na próxima rodada; um listener removido durante o
// despacho não dispara mais, nem na rodada corrente.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*Listener
}

// NewEmitter cria um Emitter vazio.
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[string][]*Listener),
	}
}

// On registra fn para todas as ocorrências de event.
func (e *Emitter) On(event string, fn Handler) *Listener {
	return e.add(event, fn, false)
}

// Once registra fn para a próxima ocorrência de event. O listener é removido
// antes de fn executar.
func (e *Emitter) Once(event string, fn Handler) *Listener {
	return e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn Handler, once bool) *Listener {
	l := &Listener{event: event, fn: fn, once: once}
	e.mu.Lock()
	e.listeners[event] = append(e.listeners[event], l)
	e.mu.Unlock()
	return l
}

// RemoveListener remove o listener identificado pelo handle. Remover um
// handle já removido é um no-op.
func (e *Emitter) RemoveListener(l *Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	l.removed = true
	list := e.listeners[l.event]
	for i, cur := range list {
		if cur == l {
			e.listeners[l.event] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// RemoveAllListeners descarta todos os listeners de event.
func (e *Emitter) RemoveAllListeners(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.listeners[event] {
		l.removed = true
	}
	delete(e.listeners, event)
}

// Emit despacha event com arg para todos os listeners registrados, na ordem
// de registro. Retorna true se havia ao menos um listener.
func (e *Emitter) Emit(event string, arg any) bool {
	e.mu.Lock()
	list := e.listeners[event]
	if len(list) == 0 {
		e.mu.Unlock()
		return false
	}
	snapshot := make([]*Listener, len(list))
	copy(snapshot, list)

	// Listeners once saem da lista antes do despacho: um handler que
	// re-emite o mesmo evento não os dispara duas vezes.
	remaining := list[:0]
	for _, l := range list {
		if !l.once {
			remaining = append(remaining, l)
		}
	}
	e.listeners[event] = remaining
	e.mu.Unlock()

	for _, l := range snapshot {
		if l.removed {
			continue
		}
		if l.once {
			l.removed = true
		}
		l.fn(arg)
	}
	return true
}

// ListenerCount retorna quantos listeners event possui no momento.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}
