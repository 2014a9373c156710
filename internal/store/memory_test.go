package store

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(maxEntries int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(maxEntries)
	s.now = clock.now
	return s, clock
}

func TestMemoryStoreFreshness(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(0)

	if err := s.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.advance(4 * time.Minute)
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("get inside window = %q, %v, %v", got, ok, err)
	}

	clock.advance(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("entry served at the end of its window")
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("unknown key reported present")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(0)

	s.Set(ctx, "short", []byte("1"), time.Minute)
	s.Set(ctx, "long", []byte("2"), time.Hour)

	clock.advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("swept %d entries, want 1", n)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Fatal("fresh entry was swept")
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(2)

	s.Set(ctx, "a", []byte("a"), 10*time.Minute)
	s.Set(ctx, "b", []byte("b"), 2*time.Minute)

	// Full: the entry closest to expiry makes room.
	s.Set(ctx, "c", []byte("c"), 10*time.Minute)
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatal("expected b to be evicted")
	}

	// Expired entries go first.
	clock.advance(11 * time.Minute)
	s.Set(ctx, "d", []byte("d"), time.Minute)
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 after expired entries were dropped", s.Len())
	}

	// Overwriting an existing key never evicts.
	s.Set(ctx, "e", []byte("e"), time.Minute)
	s.Set(ctx, "e", []byte("e2"), time.Minute)
	got, ok, _ := s.Get(ctx, "e")
	if !ok || string(got) != "e2" || s.Len() != 2 {
		t.Fatalf("get e = %q, %v; len %d", got, ok, s.Len())
	}
}
