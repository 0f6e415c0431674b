// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import "strings"

// chunkList é a fila ordenada de chunks bufferizados de um Readable.
// push é O(1); take preserva a ordem de bytes através de fronteiras de chunk.
// O invariante length == Σ chunk.Len() é mantido pelo dono da lista
// (readState), não por ela.
type chunkList struct {
	chunks []*Chunk
}

func (l *chunkList) push(c *Chunk) {
	l.chunks = append(l.chunks, c)
}

func (l *chunkList) empty() bool {
	return len(l.chunks) == 0
}

// take remove e retorna n bytes do início da fila.
//
//   - fila vazia: nil
//   - n <= 0 ou n >= length: concatenação completa, fila limpa
//   - n menor que o primeiro chunk: prefixo fatiado, sufixo volta à frente
//   - n igual ao primeiro chunk: pop direto, sem cópia
//   - caso geral: consome chunks inteiros da frente e fatia o último
//
// length é o total de bytes bufferizados informado pelo dono; textMode decide
// entre join de texto e concatenação binária.
func (l *chunkList) take(n, length int, textMode bool) *Chunk {
	if len(l.chunks) == 0 {
		return nil
	}

	if n <= 0 || n >= length {
		return l.takeAll(length, textMode)
	}

	first := l.chunks[0]
	switch {
	case n < first.Len():
		prefix := first.slice(0, n)
		l.chunks[0] = first.slice(n, first.Len())
		return prefix
	case n == first.Len():
		l.chunks = l.chunks[1:]
		return first
	}

	if textMode {
		var b strings.Builder
		b.Grow(n)
		remaining := n
		for remaining > 0 {
			c := l.chunks[0]
			if c.Len() <= remaining {
				b.WriteString(c.Text())
				remaining -= c.Len()
				l.chunks = l.chunks[1:]
				continue
			}
			b.WriteString(c.Text()[:remaining])
			l.chunks[0] = c.slice(remaining, c.Len())
			remaining = 0
		}
		return NewTextChunk(b.String())
	}

	out := make([]byte, 0, n)
	remaining := n
	for remaining > 0 {
		c := l.chunks[0]
		if c.Len() <= remaining {
			out = append(out, c.Bytes()...)
			remaining -= c.Len()
			l.chunks = l.chunks[1:]
			continue
		}
		out = append(out, c.Bytes()[:remaining]...)
		l.chunks[0] = c.slice(remaining, c.Len())
		remaining = 0
	}
	return NewChunk(out)
}

// takeAll concatena tudo e limpa a fila.
func (l *chunkList) takeAll(length int, textMode bool) *Chunk {
	if len(l.chunks) == 1 {
		c := l.chunks[0]
		l.chunks = nil
		return c
	}

	if textMode {
		var b strings.Builder
		b.Grow(length)
		for _, c := range l.chunks {
			b.WriteString(c.Text())
		}
		l.chunks = nil
		return NewTextChunk(b.String())
	}

	out := make([]byte, 0, length)
	for _, c := range l.chunks {
		out = append(out, c.Bytes()...)
	}
	l.chunks = nil
	return NewChunk(out)
}
