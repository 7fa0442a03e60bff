package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type localItem[V any] struct {
	value     V
	expiresAt time.Time
}

// Local 进程内 LRU 缓存，条目带过期时间
type Local[V any] struct {
	lru *lru.Cache[string, localItem[V]]
	ttl time.Duration
	now func() time.Time
}

// NewLocal 创建进程内缓存
func NewLocal[V any](size int, ttl time.Duration) (*Local[V], error) {
	if size <= 0 {
		size = 128
	}
	l, err := lru.New[string, localItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &Local[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get 获取缓存，不存在或过期时返回 false
func (c *Local[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	item, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Set 写入缓存
func (c *Local[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.lru.Add(key, localItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Delete 删除缓存
func (c *Local[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.lru.Remove(key)
}
