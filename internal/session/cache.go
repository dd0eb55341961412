package session

import (
	"encoding/json"
	"log"
	"time"

	bolt "github.com/boltdb/bolt"

	"peerlend/internal/wallet"
)

const (
	cacheBucket = "session"
	cacheKey    = "current"
)

// Cache persists the last connected account so the UI can show who was
// connected before a restart. It is advisory only: it never holds secrets,
// and an entry that fails to parse is silently discarded rather than
// surfaced to the user.
type Cache struct {
	db *bolt.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) Store(acct wallet.Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(cacheKey), raw)
	})
}

// Load returns the cached account if one is present and parseable. A corrupt
// entry is deleted on the spot.
func (c *Cache) Load() (wallet.Account, bool) {
	var raw []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(cacheBucket)).Get([]byte(cacheKey)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if raw == nil {
		return wallet.Account{}, false
	}

	var acct wallet.Account
	if err := json.Unmarshal(raw, &acct); err != nil || acct.Address == "" {
		log.Printf("session: discarding unreadable cache entry")
		_ = c.Clear()
		return wallet.Account{}, false
	}
	return acct, true
}

func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Delete([]byte(cacheKey))
	})
}
