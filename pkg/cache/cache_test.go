package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("empty cache reported a hit")
	}

	if err := c.Set(ctx, "tree:abc", []byte("((A,B),C);"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "tree:abc")
	if err != nil || !hit {
		t.Fatalf("Get = %v/%v, want hit", hit, err)
	}
	if string(data) != "((A,B),C);" {
		t.Errorf("data = %q", data)
	}

	if err := c.Delete(ctx, "tree:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "tree:abc"); hit {
		t.Error("deleted entry still present")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry reported as a hit")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("((A,B),C);"))
	if h1 != Hash([]byte("((A,B),C);")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("((A,C),B);")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.TreeKey("abc"); got != "tree:abc" {
		t.Errorf("TreeKey = %q", got)
	}

	// Any view option change must change the key.
	lk1 := k.LayoutKey("h", LayoutKeyOpts{View: -1})
	lk2 := k.LayoutKey("h", LayoutKeyOpts{View: 4})
	lk3 := k.LayoutKey("h", LayoutKeyOpts{View: -1, HiddenIDs: []int{4}})
	if lk1 == lk2 || lk1 == lk3 {
		t.Error("layout keys should differ per view options")
	}

	ak1 := k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("h", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("artifact keys should differ per format")
	}
}

func TestScopedKeyer(t *testing.T) {
	k := NewScopedKeyer(nil, "user:42:")
	if got := k.TreeKey("abc"); got != "user:42:tree:abc" {
		t.Errorf("scoped TreeKey = %q", got)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("non-retryable: calls = %d, err = %v, want 1 call", calls, err)
	}
}
