package dashboard

import (
	"context"
	"testing"
)

func TestInMemorySessionStore(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()
	for _, id := range []string{"b", "a"} {
		if err := store.Put(ctx, NewController(ControllerOptions{ID: id})); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}
	if got, ok := store.Get(ctx, "a"); !ok || got.ID() != "a" {
		t.Fatalf("expected session a, got %v %v", got, ok)
	}
	if ids := store.IDs(ctx); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := store.Get(ctx, "a"); ok {
		t.Fatalf("expected session a to be removed")
	}
}

func TestInMemorySessionStoreRequiresID(t *testing.T) {
	store := NewInMemorySessionStore()
	if err := store.Put(context.Background(), NewController(ControllerOptions{})); err == nil {
		t.Fatalf("expected error for controller without id")
	}
	if err := store.Put(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil controller")
	}
}
