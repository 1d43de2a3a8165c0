package cache

import (
	"testing"
	"time"
)

func openTest(t *testing.T, dir string) *Cache {
	t.Helper()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return c
}

func TestSetGet(t *testing.T) {
	c := openTest(t, "")
	defer c.Close()

	key := GenerateKey("gpt-4o-mini", "formal", "true", "Привет мир")
	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	want := &Entry{Text: "Hello world", Model: "gpt-4o-mini", Usage: Usage{TotalTokens: 42}, CreatedAt: time.Now().UTC()}
	if err := c.Set(key, want, DefaultTTL); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Text != want.Text || got.Usage.TotalTokens != 42 || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("hit after delete")
	}
	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	c := openTest(t, dir)
	if err := c.Set("k", &Entry{Text: "v"}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	c = openTest(t, dir)
	defer c.Close()
	got, ok := c.Get("k")
	if !ok || got.Text != "v" {
		t.Fatalf("after reopen got %+v, %v", got, ok)
	}
}

func TestNilCacheIsMiss(t *testing.T) {
	var c *Cache
	if _, ok := c.Get("x"); ok {
		t.Fatal("nil cache hit")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("ab", "c")
	b := GenerateKey("a", "bc")
	if a == b {
		t.Fatal("keys collide across part boundaries")
	}
	if GenerateKey("x", "y") != GenerateKey("x", "y") {
		t.Fatal("key not deterministic")
	}
	if len(a) != len("rw:")+64 {
		t.Fatalf("unexpected key length %d", len(a))
	}
}
