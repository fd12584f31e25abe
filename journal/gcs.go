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
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSSink writes each batch as one object in a Google Cloud Storage bucket
type GCSSink struct {
	logger *slog.Logger
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSSink(ctx context.Context, bucket, prefix string, o *sinkOptions) (*GCSSink, error) {
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if o.credentialsFile != "" {
		if _, err := os.Stat(o.credentialsFile); err != nil {
			return nil, fmt.Errorf("journal: gcs sink: credentials file: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.credentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("journal: gcs sink: failed in creating storage client: %w", err)
	}
	return &GCSSink{
		logger: o.logger,
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

func (s *GCSSink) Write(ctx context.Context, records []Record) error {
	data, err := encodeLines(records)
	if err != nil {
		return err
	}
	name := objectName(s.prefix, records)
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("journal: gcs sink: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("journal: gcs sink: close %s: %w", name, err)
	}
	s.logger.Debug(
		"wrote journal object",
		"component", "journal",
		"object", name,
		"records", len(records),
	)
	return nil
}

func (s *GCSSink) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
