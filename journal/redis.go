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
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "gavel.journal"

// RedisSink publishes every record on a redis channel
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink takes the channel from the URL path, as in
// redis://host:6379/channel
func NewRedisSink(u *url.URL, _ *sinkOptions) (*RedisSink, error) {
	channel := strings.Trim(u.Path, "/")
	if channel == "" {
		channel = DefaultRedisChannel
	}
	connURL := *u
	connURL.Path = ""
	opt, err := redis.ParseURL(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("journal: redis sink: %w", err)
	}
	return &RedisSink{
		client:  redis.NewClient(opt),
		channel: channel,
	}, nil
}

func (s *RedisSink) Channel() string {
	return s.channel
}

func (s *RedisSink) Write(ctx context.Context, records []Record) error {
	pipe := s.client.Pipeline()
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, s.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal: redis sink: publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
