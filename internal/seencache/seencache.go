// Package seencache tracks source-native item IDs already processed, backed
// by badger. Within one run it suppresses the same item surfacing on several
// search pages; with a directory configured it persists across runs so
// detail lookups (and API quota) are not spent twice inside the TTL.
package seencache

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates a cache. An empty dir opens an in-memory store scoped to the
// process; otherwise the badger directory is reused across runs.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Seen reports whether Mark was called for (platform, id) inside the TTL.
func (c *Cache) Seen(platform, id string) bool {
	seen := false
	_ = c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(platform, id))
		if err == nil {
			seen = true
		}
		return nil
	})
	return seen
}

// Mark records (platform, id).
func (c *Cache) Mark(platform, id string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(platform, id), []byte{1})
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func key(platform, id string) []byte {
	return []byte(platform + "/" + id)
}
