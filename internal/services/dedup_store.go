package services

import (
	gocache "github.com/patrickmn/go-cache"
	"time"
)

// DedupStore remembers listing ids already delivered to one subscriber.
type DedupStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewDedupStore with ttl <= 0 never evicts. Otherwise ids not seen on the page for ttl are forgotten.
func NewDedupStore(ttl time.Duration) *DedupStore {
	if ttl <= 0 {
		return &DedupStore{cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &DedupStore{cache: gocache.New(ttl, ttl), ttl: ttl}
}

// Contains reports whether id was added. A hit refreshes the expiration.
func (d *DedupStore) Contains(id string) bool {
	if _, found := d.cache.Get(id); !found {
		return false
	}
	if d.ttl > 0 {
		d.cache.Set(id, struct{}{}, gocache.DefaultExpiration)
	}
	return true
}

func (d *DedupStore) Add(id string) {
	d.cache.Set(id, struct{}{}, gocache.DefaultExpiration)
}

func (d *DedupStore) Len() int {
	return d.cache.ItemCount()
}
