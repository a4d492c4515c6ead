package lockstore

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestLocalLockUnlockIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Unlock(ctx, "k"); err != nil {
		t.Fatalf("unlock of unlocked key: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Lock(ctx, "k"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.IsLocked(ctx, "k"); !ok {
		t.Fatalf("expected locked")
	}
	if s.Len() != 1 {
		t.Fatalf("repeated Lock must keep a single marker, got %d", s.Len())
	}
	for i := 0; i < 3; i++ {
		if err := s.Unlock(ctx, "k"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.IsLocked(ctx, "k"); ok {
		t.Fatalf("expected unlocked")
	}
}

func TestLocalKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_ = s.Lock(ctx, "a")
	if ok, _ := s.IsLocked(ctx, "b"); ok {
		t.Fatalf("b must not be locked by a")
	}
}

func TestLocalLockedUnder(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	for _, k := range []string{"c/a", "c/a/1", "c/a/2/x", "c/ab", "d/a"} {
		_ = s.Lock(ctx, k)
	}
	keys, err := s.LockedUnder(ctx, "c/a")
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(keys)
	want := []string{"c/a", "c/a/1", "c/a/2/x"}
	if !slices.Equal(keys, want) {
		t.Fatalf("LockedUnder(c/a)=%v want %v", keys, want)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Lock(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Lock(ctx, "fresh"); err != nil {
		t.Fatal(err)
	}
	s.Cleanup(30 * time.Millisecond)

	if ok, _ := s.IsLocked(ctx, "old"); ok {
		t.Fatalf("expected stale marker pruned")
	}
	if ok, _ := s.IsLocked(ctx, "fresh"); !ok {
		t.Fatalf("fresh marker must survive cleanup")
	}
}

func TestLocalSweepLoop(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(10*time.Millisecond, 20*time.Millisecond)

	_ = s.Lock(ctx, "k")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := s.IsLocked(ctx, "k"); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ok, _ := s.IsLocked(ctx, "k"); ok {
		t.Fatalf("sweep loop did not prune marker")
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
