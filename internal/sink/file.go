// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// OpenFileWriter abre path para escrita, aplicando a compressão pedida
// ("none", "gzip", "zstd"). Retorna o writer e a função de fechamento, que
// dá flush no compressor antes de fechar o arquivo.
func OpenFileWriter(path, compression string) (io.Writer, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating sink file: %w", err)
	}

	switch compression {
	case "", "none":
		return f, f.Close, nil
	case "gzip":
		zw := pgzip.NewWriter(f)
		closeFn := func() error {
			if err := zw.Close(); err != nil {
				f.Close()
				return fmt.Errorf("closing gzip writer: %w", err)
			}
			return f.Close()
		}
		return zw, closeFn, nil
	case "zstd":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("opening zstd writer: %w", err)
		}
		closeFn := func() error {
			if err := zw.Close(); err != nil {
				f.Close()
				return fmt.Errorf("closing zstd writer: %w", err)
			}
			return f.Close()
		}
		return zw, closeFn, nil
	}
	f.Close()
	return nil, nil, fmt.Errorf("unknown sink compression %q", compression)
}

// NewFileSink cria um WriterSink sobre um arquivo local, com compressão
// opcional.
func NewFileSink(path, compression string, logger *slog.Logger) (*WriterSink, error) {
	w, closeFn, err := OpenFileWriter(path, compression)
	if err != nil {
		return nil, err
	}
	return NewWriterSink(w, closeFn, false, logger.With("sink", path)), nil
}

// NewStdoutSink cria um WriterSink sobre o stdout do processo. O pipe engine
// nunca encerra este destino.
func NewStdoutSink(logger *slog.Logger) *WriterSink {
	return NewWriterSink(os.Stdout, nil, true, logger.With("sink", "stdout"))
}
