package store

import (
	"context"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, KeyHistory, `{"version":1,"items":[]}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, found, err := s.Get(ctx, KeyHistory)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected key to be present")
	}
	if val != `{"version":1,"items":[]}` {
		t.Errorf("unexpected value: %q", val)
	}
}

func TestFileStoreAbsentKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	_, found, err := s.Get(context.Background(), KeyFavorites)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected absent key")
	}
}

func TestFileStoreRemove(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, KeyPlaylists, "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Remove(ctx, KeyPlaylists); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, found, _ := s.Get(ctx, KeyPlaylists); found {
		t.Error("expected key removed")
	}

	// Removing an absent key is a no-op.
	if err := s.Remove(ctx, KeyPlaylists); err != nil {
		t.Errorf("Remove absent key: %v", err)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, KeyAutoPay, "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeyAutoPay, "false"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, _, err := s.Get(ctx, KeyAutoPay)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "false" {
		t.Errorf("expected overwritten value, got %q", val)
	}
}
