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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

var ErrUnsupportedSink = errors.New("unsupported journal sink")

type sinkOptions struct {
	logger          *slog.Logger
	credentialsFile string
	region          string
}

type SinkOptionFunc func(*sinkOptions)

func WithSinkLogger(logger *slog.Logger) SinkOptionFunc {
	return func(o *sinkOptions) {
		o.logger = logger
	}
}

// WithCredentialsFile sets the credentials file for GCS sinks
func WithCredentialsFile(path string) SinkOptionFunc {
	return func(o *sinkOptions) {
		o.credentialsFile = path
	}
}

// WithRegion overrides the AWS region for S3 sinks
func WithRegion(region string) SinkOptionFunc {
	return func(o *sinkOptions) {
		o.region = region
	}
}

// OpenSink creates a sink from a URL. Supported schemes are file, gs, s3
// and redis (or rediss)
func OpenSink(ctx context.Context, rawURL string, opts ...SinkOptionFunc) (Sink, error) {
	o := &sinkOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("journal: invalid sink URL: %w", err)
	}
	switch u.Scheme {
	case "file", "":
		return NewFileSink(filePath(u))
	case "gs":
		bucket, prefix, err := bucketAndPrefix(u)
		if err != nil {
			return nil, err
		}
		return NewGCSSink(ctx, bucket, prefix, o)
	case "s3":
		bucket, prefix, err := bucketAndPrefix(u)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(ctx, bucket, prefix, o)
	case "redis", "rediss":
		return NewRedisSink(u, o)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSink, u.Scheme)
}

func filePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}

func bucketAndPrefix(u *url.URL) (string, string, error) {
	if u.Host == "" {
		return "", "", fmt.Errorf(
			"journal: %s sink: bucket not set (expected %s://<bucket>[/prefix])",
			u.Scheme,
			u.Scheme,
		)
	}
	prefix := strings.Trim(u.Path, "/")
	if prefix != "" {
		prefix += "/"
	}
	return u.Host, prefix, nil
}

// objectName names the object holding a batch by its sequence range
func objectName(prefix string, records []Record) string {
	return fmt.Sprintf(
		"%s%020d-%020d.jsonl",
		prefix,
		records[0].Sequence,
		records[len(records)-1].Sequence,
	)
}

func encodeLines(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
