package cache

import (
	"context"
	"io"
	"time"
)

// LayeredCache is a two-level cache: a process-local L1 in front of a shared
// L2 (Redis). Writes go through both; L2 hits refill L1 for at most l1TTL.
type LayeredCache struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
}

func NewLayeredCache(l1, l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	if l1TTL <= 0 {
		l1TTL = 30 * time.Second
	}
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := c.l1.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.SetBytes(ctx, key, b, c.l1TTL)
	return b, true, nil
}

// SetBytes writes L2 first; L1 is only filled when L2 accepted the value.
func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1 := ttl
	if l1 <= 0 || l1 > c.l1TTL {
		l1 = c.l1TTL
	}
	return c.l1.SetBytes(ctx, key, value, l1)
}

func (c *LayeredCache) Close() error {
	if cl, ok := c.l2.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
