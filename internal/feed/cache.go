// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

// ErrCacheMiss means no labels are cached or they expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache keeps the latest labels of one device in Redis under
// activity:<device>:realtime. Entries expire after ttl so a dead monitor
// does not look alive.
type Cache struct {
	client *redis.Client
	device string
	ttl    time.Duration
}

func NewCache(client *redis.Client, device string, ttl time.Duration) *Cache {
	return &Cache{client: client, device: device, ttl: ttl}
}

// Key returns the Redis key of this device.
func (c *Cache) Key() string {
	return fmt.Sprintf("activity:%s:realtime", c.device)
}

// Publish implements Sink.
func (c *Cache) Publish(ctx context.Context, l pipeline.Labels) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.Key(), err)
	}
	return nil
}

// Get returns the cached labels, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context) (pipeline.Labels, error) {
	val, err := c.client.Get(ctx, c.Key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pipeline.Labels{}, ErrCacheMiss
		}
		return pipeline.Labels{}, fmt.Errorf("redis get %s: %w", c.Key(), err)
	}
	var l pipeline.Labels
	if err := json.Unmarshal(val, &l); err != nil {
		return pipeline.Labels{}, fmt.Errorf("unmarshal cached labels: %w", err)
	}
	return l, nil
}
