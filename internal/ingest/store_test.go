package ingest

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSets(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, m := range []string{"a", "b", "b"} {
		if err := s.SetAdd(ctx, "slots", m); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := s.SetCard(ctx, "slots"); n != 2 {
		t.Errorf("card = %d, want 2 (set semantics)", n)
	}

	members, _ := s.SetMembers(ctx, "slots")
	if len(members) != 2 {
		t.Errorf("members = %v", members)
	}

	if err := s.SetRemove(ctx, "slots", "a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.SetCard(ctx, "slots"); n != 1 {
		t.Errorf("card after remove = %d", n)
	}

	// removing an absent member is not an error
	if err := s.SetRemove(ctx, "slots", "ghost"); err != nil {
		t.Errorf("remove absent: %v", err)
	}
	if n, _ := s.SetCard(ctx, "nosuchset"); n != 0 {
		t.Errorf("card of missing set = %d", n)
	}
}

func TestMemoryStoreValueTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetValue(ctx, "k", "v", 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := s.GetValue(ctx, "k"); !ok || got != "v" {
		t.Fatalf("GetValue = (%q, %v)", got, ok)
	}
	if exists, _ := s.Exists(ctx, "k"); !exists {
		t.Error("Exists = false for live key")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok, _ := s.GetValue(ctx, "k"); ok {
		t.Error("expired key still readable")
	}
	if exists, _ := s.Exists(ctx, "k"); exists {
		t.Error("expired key still exists")
	}
}

func TestMemoryStoreZeroTTLPersists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetValue(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := s.GetValue(ctx, "k"); !ok {
		t.Error("zero-TTL key must not expire")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.SetValue(ctx, "k", "v", time.Minute)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetValue(ctx, "k"); ok {
		t.Error("deleted key still readable")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("double delete: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}
