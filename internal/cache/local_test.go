package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalCacheExpires(t *testing.T) {
	c, err := NewLocal[int](4, time.Minute)
	if err != nil {
		t.Fatalf("new local cache failed: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("k", 7)

	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("expected hit 7, got %v %v", v, ok)
	}
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry")
	}
}

func TestLocalCacheDelete(t *testing.T) {
	c, err := NewLocal[string](4, time.Minute)
	if err != nil {
		t.Fatalf("new local cache failed: %v", err)
	}
	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected deleted entry")
	}
}

func TestDisabledRedisIsNoop(t *testing.T) {
	if Enabled() {
		t.Skip("redis enabled in this process")
	}
	snapshot, hit, err := GetPointSnapshot(context.Background(), "u-1")
	if err != nil || hit || snapshot != nil {
		t.Fatalf("disabled cache should miss silently, got %v %v %v", snapshot, hit, err)
	}
	if stored, err := SetPointSnapshot(context.Background(), &PointSnapshot{UID: "u-1", UserID: 1, Point: 5}, 0); err != nil || stored {
		t.Fatalf("disabled set should be noop: %v %v", stored, err)
	}
	if BuildKey("a") != "forum:a" {
		t.Fatalf("unexpected key: %s", BuildKey("a"))
	}
}
