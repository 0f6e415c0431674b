// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package source

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
)

// OpenFile cria um produtor sobre um arquivo local, descomprimindo conforme
// o modo ("none", "gzip", "zstd"). O arquivo é fechado quando o produtor
// sinaliza EOF ou erro.
func OpenFile(loop *eventloop.Loop, path, compression string, logger *slog.Logger) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}

	r, closer, err := wrapDecompression(f, compression)
	if err != nil {
		f.Close()
		return nil, err
	}

	return NewReaderSource(loop, r, closer, logger.With("source", path)), nil
}

// multiCloser fecha o leitor de descompressão antes do arquivo subjacente.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zstdCloser adapta o Close sem retorno do decoder zstd.
type zstdCloser struct{ dec *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.dec.Close()
	return nil
}

func wrapDecompression(f *os.File, compression string) (io.Reader, io.Closer, error) {
	switch compression {
	case "", "none":
		return f, f, nil
	case "gzip":
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("opening gzip reader: %w", err)
		}
		return zr, multiCloser{zr, f}, nil
	case "zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("opening zstd reader: %w", err)
		}
		return zr, multiCloser{zstdCloser{zr}, f}, nil
	}
	return nil, nil, fmt.Errorf("unknown source compression %q", compression)
}
