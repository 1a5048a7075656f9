package memory

import "testing"

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := store.GetOrCreate("u1")
	if session == nil {
		t.Fatalf("expected session")
	}
	if _, ok := store.Get("u1"); !ok {
		t.Fatalf("expected session present")
	}

	store.DeleteIfEmpty("u1")
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected session removed when empty")
	}
}
