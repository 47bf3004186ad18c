package session

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	sess, err := New("((A,B),C);", DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID == "" {
		t.Error("missing session ID")
	}
	if sess.Source != "((A,B),C);" {
		t.Errorf("Source = %q", sess.Source)
	}
	if sess.State.View != -1 {
		t.Errorf("initial view = %d, want -1 (entire tree)", sess.State.View)
	}
	if sess.IsExpired() {
		t.Error("fresh session reported as expired")
	}

	other, err := New("(A,B);", DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == sess.ID {
		t.Error("session IDs should be unique")
	}
}

func TestTouch(t *testing.T) {
	sess, err := New("(A,B);", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	sess.ExpiresAt = time.Now().Add(-time.Second)
	if !sess.IsExpired() {
		t.Fatal("session should be expired")
	}
	sess.Touch(time.Hour)
	if sess.IsExpired() {
		t.Error("touched session should be live again")
	}
}

func runStoreTests(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if got, err := store.Get(ctx, "nope"); err != nil || got != nil {
		t.Fatalf("Get(missing) = %v, %v, want nil, nil", got, err)
	}

	sess, err := New("((A:1,B:2):1,C:3);", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sess.State.Hidden = []int{4}
	sess.State.Order = "ascending"
	sess.State.Paints = map[string]string{"2": "#ff0000"}

	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("stored session not found")
	}
	if got.Source != sess.Source {
		t.Errorf("Source = %q", got.Source)
	}
	if len(got.State.Hidden) != 1 || got.State.Hidden[0] != 4 {
		t.Errorf("Hidden = %v", got.State.Hidden)
	}
	if got.State.Paints["2"] != "#ff0000" {
		t.Errorf("Paints = %v", got.State.Paints)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("deleted session still present")
	}

	// Expired sessions are filtered on read and removed by Cleanup.
	stale, err := New("(A,B);", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Set(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, stale.ID); got != nil {
		t.Error("expired session returned from Get")
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runStoreTests(t, store)
}

func TestFileStoreCleanup(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	live, _ := New("(A,B);", time.Hour)
	stale, _ := New("(C,D);", time.Hour)
	stale.ExpiresAt = time.Now().Add(-time.Minute)

	for _, s := range []*Session{live, stale} {
		if err := store.Set(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}

	if got, _ := store.Get(ctx, live.ID); got == nil {
		t.Error("cleanup removed a live session")
	}
	if got, _ := store.Get(ctx, stale.ID); got != nil {
		t.Error("cleanup kept an expired session")
	}
}
