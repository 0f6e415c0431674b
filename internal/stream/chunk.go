// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

// Chunk é a unidade de entrega de um stream: uma fatia contígua de bytes ou,
// quando um decoder está configurado, um fragmento de texto já decodificado.
// Chunks são imutáveis depois de criados; fatiar produz um novo Chunk com
// bytes copiados, para que o consumidor nunca compartilhe memória com o
// buffer interno do stream.
type Chunk struct {
	data []byte
	text string

	isText bool
}

// NewChunk cria um Chunk binário. O slice não é copiado; o produtor não deve
// reutilizá-lo após a entrega.
func NewChunk(b []byte) *Chunk {
	return &Chunk{data: b}
}

// NewTextChunk cria um Chunk de texto decodificado.
func NewTextChunk(s string) *Chunk {
	return &Chunk{text: s, isText: true}
}

// Len retorna o tamanho do chunk em bytes (modo binário) ou em bytes UTF-8
// do fragmento (modo texto).
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	if c.isText {
		return len(c.text)
	}
	return len(c.data)
}

// IsText informa se o chunk carrega texto decodificado.
func (c *Chunk) IsText() bool { return c != nil && c.isText }

// Bytes retorna o payload binário. Em modo texto retorna os bytes do
// fragmento.
func (c *Chunk) Bytes() []byte {
	if c == nil {
		return nil
	}
	if c.isText {
		return []byte(c.text)
	}
	return c.data
}

// Text retorna o payload como texto.
func (c *Chunk) Text() string {
	if c == nil {
		return ""
	}
	if c.isText {
		return c.text
	}
	return string(c.data)
}

// slice devolve um novo Chunk com o intervalo [from, to). Os bytes são
// copiados.
func (c *Chunk) slice(from, to int) *Chunk {
	if c.isText {
		return NewTextChunk(c.text[from:to])
	}
	out := make([]byte, to-from)
	copy(out, c.data[from:to])
	return NewChunk(out)
}
