// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package eventloop implementa o executor cooperativo de turno único sobre o
// qual todo o estado de um stream vive. Um turno é a execução de uma tarefa
// até o fim; tarefas agendadas durante um turno rodam somente depois dele.
package eventloop

import (
	"context"
	"sync"
)

// Loop é uma fila FIFO de tarefas executadas uma por vez, sempre na goroutine
// que chama Drain ou Run. Todo o estado mutável de um stream pertence a um
// único Loop; código externo entrega trabalho via Post.
type Loop struct {
	mu    sync.Mutex
	tasks []func()

	// wake acorda Run quando uma tarefa chega com a fila vazia.
	wake chan struct{}
}

// New cria um Loop vazio.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enfileira fn para execução no loop. Pode ser chamado de qualquer
// goroutine; fn rodará na goroutine que estiver drenando o loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Defer agenda fn para rodar depois que o turno atual terminar. É a mesma
// fila de Post; o nome separado documenta a intenção nos call sites que
// precisam de semântica de fronteira de turno (emissão de end, primeira
// iteração de flow).
func (l *Loop) Defer(fn func()) {
	l.Post(fn)
}

// Drain executa tarefas até a fila esvaziar, incluindo as que forem
// enfileiradas pelas próprias tarefas. Retorna o número de tarefas executadas.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.tasks[0]
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
		ran++
	}
}

// Pending retorna quantas tarefas aguardam execução.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Run drena o loop e bloqueia aguardando novas tarefas até ctx ser cancelado.
// Tarefas já enfileiradas no momento do cancelamento ainda são executadas.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()

		select {
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		case <-l.wake:
		}
	}
}
