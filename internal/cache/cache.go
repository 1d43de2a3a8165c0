// Package cache stores rewrite results in a badger database keyed by a hash
// of everything that influences the output.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL bounds how long a rewrite is reused.
const DefaultTTL = 7 * 24 * time.Hour

// Usage is token accounting reported by the provider.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Entry is one cached result.
type Entry struct {
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is a badger-backed key/value store.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) the cache in dir. An empty dir keeps the cache
// in memory.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the entry for key. Any failure reads as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key. A non-positive ttl stores it without expiry.
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	if c == nil {
		return errors.New("cache is nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// GenerateKey hashes parts into a fixed-length key. Parts are length
// prefixed so ("ab", "c") and ("a", "bc") differ.
func GenerateKey(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%d:%s|", len(p), p)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "rw:" + hex.EncodeToString(sum[:])
}
