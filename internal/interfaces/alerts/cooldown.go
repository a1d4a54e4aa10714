package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cooldown suppresses repeat alerts. Acquire reports whether key was free
// and claims it for ttl; Release frees a claim whose alert was not delivered.
type Cooldown interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CooldownKey names the cooldown slot of one streak length.
func CooldownKey(system, team string, losses int) string {
	return fmt.Sprintf("streakrun:alert:%s:%s:%d", system, team, losses)
}

// RedisCooldown stores cooldowns with SETNX so concurrent runs share them.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown wraps client.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (c *RedisCooldown) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown %s: %w", key, err)
	}
	return ok, nil
}

func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cooldown %s: %w", key, err)
	}
	return nil
}

// MemoryCooldown is the in-process fallback used without Redis.
type MemoryCooldown struct {
	mu  sync.Mutex
	m   map[string]time.Time
	now func() time.Time
}

// NewMemoryCooldown creates an empty store. A nil now uses time.Now.
func NewMemoryCooldown(now func() time.Time) *MemoryCooldown {
	if now == nil {
		now = time.Now
	}
	return &MemoryCooldown{m: make(map[string]time.Time), now: now}
}

func (c *MemoryCooldown) Acquire(_ context.Context, key, _ string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.m[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.m[key] = now.Add(ttl)
	return true, nil
}

func (c *MemoryCooldown) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}
