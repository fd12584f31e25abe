// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink writes each batch as one object in an S3 bucket
type S3Sink struct {
	logger *slog.Logger
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Sink(ctx context.Context, bucket, prefix string, o *sinkOptions) (*S3Sink, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: s3 sink: load default AWS config: %w", err)
	}
	if o.region != "" {
		awsCfg.Region = o.region
	}
	return &S3Sink{
		logger: o.logger,
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Sink) Write(ctx context.Context, records []Record) error {
	data, err := encodeLines(records)
	if err != nil {
		return err
	}
	key := objectName(s.prefix, records)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("journal: s3 sink: put %s: %w", key, err)
	}
	s.logger.Debug(
		"wrote journal object",
		"component", "journal",
		"key", key,
		"records", len(records),
	)
	return nil
}

func (s *S3Sink) Close() error {
	return nil
}
