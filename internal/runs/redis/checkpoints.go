// Package redis provides the shared checkpoint store that lets an
// interrupted run resume under the same run ID without re-mutating
// identities that were already recorded.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for processed-identity markers
	checkpointKeyPrefix = "run:seen:"

	defaultTTL = 7 * 24 * time.Hour
)

// Checkpoints is a Redis-backed processed-identity set, keyed per run.
type Checkpoints struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Checkpoints instance.
type Option func(*Checkpoints)

// WithTTL overrides how long markers outlive the run.
func WithTTL(ttl time.Duration) Option {
	return func(c *Checkpoints) { c.ttl = ttl }
}

func New(client *redis.Client, opts ...Option) *Checkpoints {
	c := &Checkpoints{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func key(runID, principalName string) string {
	return checkpointKeyPrefix + runID + ":" + principalName
}

// Mark flags the identity as recorded for this run.
func (c *Checkpoints) Mark(ctx context.Context, runID, principalName string) error {
	// Key existence is the marker; the value is irrelevant.
	if err := c.client.Set(ctx, key(runID, principalName), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("mark checkpoint: %w", err)
	}
	return nil
}

// Seen reports whether the identity was already recorded for this run.
func (c *Checkpoints) Seen(ctx context.Context, runID, principalName string) (bool, error) {
	n, err := c.client.Exists(ctx, key(runID, principalName)).Result()
	if err != nil {
		return false, fmt.Errorf("check checkpoint: %w", err)
	}
	return n > 0, nil
}
