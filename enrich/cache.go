package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var pagesBucket = []byte("pages")

// DefaultCacheTTL bounds how long a scraped page is served from disk.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	Content  string    `json:"content"`
	StoredAt time.Time `json:"stored_at"`
}

// PageCache persists scraped page content in a bbolt file so repeated
// enrichment of the same URL skips the network.
type PageCache struct {
	Path string
	TTL  time.Duration

	db  *bolt.DB
	mu  sync.RWMutex
	now func() time.Time
}

func NewPageCache(path string, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PageCache{
		Path: path,
		TTL:  ttl,
		now:  time.Now,
	}
}

// Init opens the database file, creating the parent directory and the
// bucket when missing.
func (c *PageCache) Init() error {
	dbDir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(c.Path, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	c.db = db
	return nil
}

// Get returns the cached content for key. Unknown, undecodable and
// expired entries all report a miss.
func (c *PageCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entry cacheEntry
	found := false
	c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(pagesBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return "", false
	}
	if c.now().Sub(entry.StoredAt) > c.TTL {
		return "", false
	}
	return entry.Content, true
}

func (c *PageCache) Put(key, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cacheEntry{Content: content, StoredAt: c.now()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Put([]byte(key), data)
	})
}

// Close closes the underlying database.
func (c *PageCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
