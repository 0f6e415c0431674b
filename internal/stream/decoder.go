// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"fmt"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// textDecoder converte chunks binários em fragmentos de texto de forma
// incremental: uma sequência multi-byte partida entre dois chunks fica
// retida até o chunk seguinte completá-la, e o consumidor sempre observa
// code points inteiros.
type textDecoder struct {
	tr      transform.Transformer
	pending []byte // cauda de uma sequência multi-byte incompleta
}

// newTextDecoder resolve label na tabela IANA e monta o decoder streaming.
func newTextDecoder(label string) (*textDecoder, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("stream: unknown encoding %q", label)
	}
	return &textDecoder{tr: enc.NewDecoder()}, nil
}

// Write decodifica p junto com qualquer cauda pendente e retorna o texto
// completo disponível. Retorno vazio significa que p inteiro é o começo de
// uma sequência ainda incompleta.
func (d *textDecoder) Write(p []byte) (string, error) {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}

	out := make([]byte, 0, len(src)+8)
	dst := make([]byte, len(src)*2+16)

	for len(src) > 0 {
		nDst, nSrc, err := d.tr.Transform(dst, src, false)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil:
			if nDst == 0 && nSrc == 0 {
				// transformador não progrediu; evita loop infinito
				d.pending = append(d.pending, src...)
				return string(out), nil
			}
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return string(out), nil
		case transform.ErrShortDst:
			dst = make([]byte, len(dst)*2)
		default:
			return "", fmt.Errorf("stream: decoding chunk: %w", err)
		}
	}
	return string(out), nil
}
