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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketAndPrefix(t *testing.T) {
	testCases := []struct {
		url     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{url: "gs://archive", bucket: "archive"},
		{url: "gs://archive/gavel/", bucket: "archive", prefix: "gavel/"},
		{url: "s3://archive/a/b", bucket: "archive", prefix: "a/b/"},
		{url: "s3:///missing", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			require.NoError(t, err)
			bucket, prefix, err := bucketAndPrefix(u)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.bucket, bucket)
			assert.Equal(t, tc.prefix, prefix)
		})
	}
}

func TestObjectName(t *testing.T) {
	records := []Record{{Sequence: 7}, {Sequence: 9}}
	assert.Equal(
		t,
		"gavel/00000000000000000007-00000000000000000009.jsonl",
		objectName("gavel/", records),
	)
}

func TestRedisSinkChannel(t *testing.T) {
	sink, err := OpenSink(context.Background(), "redis://localhost:6379/proposals")
	require.NoError(t, err)
	defer sink.Close()
	redisSink, ok := sink.(*RedisSink)
	require.True(t, ok)
	assert.Equal(t, "proposals", redisSink.Channel())

	sink, err = OpenSink(context.Background(), "redis://localhost:6379")
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, DefaultRedisChannel, sink.(*RedisSink).Channel())
}

func TestOpenSinkErrors(t *testing.T) {
	_, err := OpenSink(context.Background(), "ftp://example.com/x")
	assert.ErrorIs(t, err, ErrUnsupportedSink)
	_, err = OpenSink(context.Background(), "gs://")
	assert.Error(t, err)
	_, err = OpenSink(context.Background(), "file://")
	assert.Error(t, err)
}
