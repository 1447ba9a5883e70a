package cache

import (
	"context"
	"testing"
	"time"
)

// fakeRemoteCache is an in-memory stand-in for remotecache.RemoteCache,
// used to test Tiered's promotion semantics without a real Redis server.
type fakeRemoteCache struct {
	store map[string][]byte
	ttl   map[string]time.Duration
}

func newFakeRemoteCache() *fakeRemoteCache {
	return &fakeRemoteCache{store: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRemoteCache) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	v, ok := f.store[key]
	if !ok {
		return nil, 0, false, nil
	}
	return v, f.ttl[key], true, nil
}

func (f *fakeRemoteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.store[key] = value
	f.ttl[key] = ttl
	return nil
}

func (f *fakeRemoteCache) Delete(ctx context.Context, key string) error {
	delete(f.store, key)
	delete(f.ttl, key)
	return nil
}

func TestTieredGetPromotesL2HitIntoL1(t *testing.T) {
	l1 := New(Config{MaxEntries: 10, MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	l2 := newFakeRemoteCache()
	_ = l2.Set(context.Background(), "k", []byte("v"), 10*time.Second)

	tc := NewTiered(l1, l2)
	v, ok, err := tc.Get(context.Background(), "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}
	if _, ok := l1.Get("k"); !ok {
		t.Fatal("expected L2 hit to promote into L1")
	}
}

func TestTieredGetMissesBothTiers(t *testing.T) {
	l1 := New(Config{MaxEntries: 10, MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	tc := NewTiered(l1, newFakeRemoteCache())
	_, ok, err := tc.Get(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("Get = (_, %v, %v), want (false, nil)", ok, err)
	}
}

func TestTieredSetWritesThroughBothTiers(t *testing.T) {
	l1 := New(Config{MaxEntries: 10, MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	l2 := newFakeRemoteCache()
	tc := NewTiered(l1, l2)

	if err := tc.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := l1.Get("k"); !ok {
		t.Fatal("expected L1 write")
	}
	if _, _, ok, _ := l2.Get(context.Background(), "k"); !ok {
		t.Fatal("expected L2 write")
	}
}

func TestTieredWorksWithoutL2(t *testing.T) {
	l1 := New(Config{MaxEntries: 10, MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	tc := NewTiered(l1, nil)
	if err := tc.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := tc.Get(context.Background(), "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = (%q, %v, %v)", v, ok, err)
	}
}
