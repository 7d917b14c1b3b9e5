package rates

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

// Cache memoizes rate lookups for one rate book snapshot. It is owned by the
// caller and passed into NewPricer; binding it to a book with a different
// fingerprint flushes it.
type Cache struct {
	store       *gocache.Cache
	fingerprint uint64
	hits        int
	misses      int
}

// NewCache returns an empty cache with no expiry.
func NewCache() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

// Stats returns the hit and miss counts since the last flush.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	return c.hits, c.misses
}

// Len returns the number of memoized lookups.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.ItemCount()
}

func (c *Cache) bind(fingerprint uint64) {
	if c.fingerprint == fingerprint {
		return
	}
	c.store.Flush()
	c.fingerprint = fingerprint
	c.hits, c.misses = 0, 0
}

type cachedRate struct {
	rate float64
	err  error
}

// Fingerprint hashes the canonical YAML encoding of the book. Equal books
// always share a fingerprint.
func (b Book) Fingerprint() uint64 {
	encoded, err := yaml.Marshal(b)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(encoded)
}

// Pricer resolves rates against a fixed book, memoizing through an optional
// Cache.
type Pricer struct {
	book        Book
	fingerprint uint64
	cache       *Cache
}

// NewPricer binds a book to a cache. A nil cache disables memoization.
func NewPricer(book Book, cache *Cache) *Pricer {
	book.Normalize()
	p := &Pricer{book: book, fingerprint: book.Fingerprint(), cache: cache}
	if cache != nil {
		cache.bind(p.fingerprint)
	}
	return p
}

// Book returns the normalized book.
func (p *Pricer) Book() Book {
	return p.book
}

// Fingerprint returns the cache invalidation key of the bound book.
func (p *Pricer) Fingerprint() uint64 {
	return p.fingerprint
}

// RatePerTon returns the memoized $/ton for the supplier and quantity.
func (p *Pricer) RatePerTon(scope Scope, supplier string, tons float64) (float64, error) {
	if p.cache == nil {
		return p.book.RatePerTon(scope, supplier, tons)
	}
	key := fmt.Sprintf("%x|%s|%s|%.6f", p.fingerprint, scope, canonical(supplier), tons)
	if cached, ok := p.cache.store.Get(key); ok {
		p.cache.hits++
		entry := cached.(cachedRate)
		return entry.rate, entry.err
	}
	p.cache.misses++
	rate, err := p.book.RatePerTon(scope, supplier, tons)
	p.cache.store.Set(key, cachedRate{rate: rate, err: err}, gocache.NoExpiration)
	return rate, err
}

// Surcharge returns the flat low-volume surcharge for the quantity.
func (p *Pricer) Surcharge(scope Scope, supplier string, tons float64) float64 {
	return p.book.Surcharge(scope, supplier, tons)
}

// Has reports whether the supplier has a model in scope.
func (p *Pricer) Has(scope Scope, supplier string) bool {
	return p.book.Has(scope, supplier)
}
