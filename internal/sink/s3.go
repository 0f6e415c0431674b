// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
)

// defaultS3Buffer limita os bytes em voo entre o pipe e o uploader quando a
// configuração não especifica buffer_size (4MB).
const defaultS3Buffer = 4 * 1024 * 1024

// NewS3Sink cria um destino que sobe o stream para um objeto S3 via upload
// multipart. Os chunks entram numa fila limitada (BufferedSink) que alimenta
// um io.Pipe consumido pelo manager.Uploader; a capacidade da fila dá o
// backpressure entre o pipe do stream e a rede.
func NewS3Sink(ctx context.Context, loop *eventloop.Loop, client *s3.Client, bucket, key string, capacity int64, logger *slog.Logger) *BufferedSink {
	if capacity <= 0 {
		capacity = defaultS3Buffer
	}

	pr, pw := io.Pipe()
	uploader := manager.NewUploader(client)
	uploadErr := make(chan error, 1)

	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			// Destrava escritas pendentes no pipe.
			pr.CloseWithError(err)
		}
		uploadErr <- err
	}()

	closeFn := func() error {
		if err := pw.Close(); err != nil {
			return err
		}
		return <-uploadErr
	}

	return NewBufferedSink(loop, pw, closeFn, capacity,
		logger.With("sink", "s3", "bucket", bucket, "key", key))
}
