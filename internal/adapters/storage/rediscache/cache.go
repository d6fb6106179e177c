// Package rediscache decorates an app.Repository with a Redis read-through cache of the
// board store and publishes committed change events on a Redis channel.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// DefaultStateKey is the Redis key holding the cached snapshot.
const DefaultStateKey = "tavla:state"

// Options configures a Cache.
type Options struct {
	// StateKey overrides DefaultStateKey.
	StateKey string
	// Channel receives one JSON ChangeMessage per saved transition. Empty disables publishing.
	Channel string
	// TTL bounds cached snapshots. Zero disables caching.
	TTL time.Duration
}

// Cache wraps a Repository with Redis-backed caching for LoadState.
type Cache struct {
	base    app.Repository
	redis   *redis.Client
	key     string
	channel string
	ttl     time.Duration
}

var _ app.Repository = (*Cache)(nil)

// NewCache creates a caching Repository wrapper using the provided Redis client.
func NewCache(base app.Repository, client *redis.Client, opts Options) *Cache {
	if base == nil {
		panic("rediscache.NewCache: base repository is nil")
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	if opts.StateKey == "" {
		opts.StateKey = DefaultStateKey
	}
	return &Cache{
		base:    base,
		redis:   client,
		key:     opts.StateKey,
		channel: opts.Channel,
		ttl:     opts.TTL,
	}
}

// LoadState returns the cached state, falling back to the base repository on a miss.
func (c *Cache) LoadState(ctx context.Context) (app.State, error) {
	if state, ok := c.loadFromCache(ctx); ok {
		return state, nil
	}
	state, err := c.base.LoadState(ctx)
	if err != nil {
		return app.State{}, err
	}
	c.store(ctx, state, time.Now())
	return state, nil
}

// SaveState persists through the base repository, refreshes the cache and publishes event.
func (c *Cache) SaveState(ctx context.Context, state app.State, event domain.ChangeEvent) error {
	if err := c.base.SaveState(ctx, state, event); err != nil {
		c.evict(ctx)
		return err
	}
	c.store(ctx, state, event.OccurredAt)
	c.publish(ctx, event)
	return nil
}

// ListChangeEvents is served by the base repository.
func (c *Cache) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	return c.base.ListChangeEvents(ctx, limit)
}

func (c *Cache) loadFromCache(ctx context.Context) (app.State, bool) {
	if c.redis == nil || c.ttl == 0 {
		return app.State{}, false
	}
	data, err := c.redis.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing repository without failing.
			c.evict(ctx)
		}
		return app.State{}, false
	}
	var snap app.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.evict(ctx)
		return app.State{}, false
	}
	if err := snap.Validate(); err != nil {
		c.evict(ctx)
		return app.State{}, false
	}
	return snap.State(), true
}

func (c *Cache) store(ctx context.Context, state app.State, at time.Time) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(app.SnapshotFromState(state, at))
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, c.key).Result()
}

func (c *Cache) publish(ctx context.Context, event domain.ChangeEvent) {
	if c.redis == nil || c.channel == "" {
		return
	}
	data, err := json.Marshal(messageFromEvent(event))
	if err != nil {
		return
	}
	_ = c.redis.Publish(ctx, c.channel, data).Err()
}
