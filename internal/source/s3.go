// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/stream"
)

// S3RangeSource puxa um objeto S3 em GETs com Range, um por Pull. Cada Pull
// busca a próxima janela de offset; a entrega é postada no loop do stream.
type S3RangeSource struct {
	loop   *eventloop.Loop
	client *s3.Client
	bucket string
	key    string
	size   int64
	offset int64
	logger *slog.Logger
}

// NewS3RangeSource resolve o tamanho do objeto via HeadObject e cria o
// produtor posicionado no offset zero.
func NewS3RangeSource(ctx context.Context, loop *eventloop.Loop, client *s3.Client, bucket, key string, logger *slog.Logger) (*S3RangeSource, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("heading s3 object %s/%s: %w", bucket, key, err)
	}

	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}

	return &S3RangeSource{
		loop:   loop,
		client: client,
		bucket: bucket,
		key:    key,
		size:   size,
		logger: logger.With("bucket", bucket, "key", key),
	}, nil
}

// Pull implementa stream.Source.
func (s *S3RangeSource) Pull(n int, deliver stream.DeliverFunc) {
	if s.offset >= s.size {
		s.loop.Defer(func() {
			deliver(nil, nil)
		})
		return
	}

	start := s.offset
	end := start + int64(n) - 1
	if end >= s.size {
		end = s.size - 1
	}
	s.offset = end + 1

	go func() {
		data, err := s.fetchRange(start, end)
		s.loop.Post(func() {
			if err != nil {
				deliver(fmt.Errorf("fetching s3 range %d-%d: %w", start, end, err), nil)
				return
			}
			deliver(nil, stream.NewChunk(data))
		})
	}()
}

func (s *S3RangeSource) fetchRange(start, end int64) ([]byte, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("fetched range", "start", start, "bytes", len(data))
	return data, nil
}
