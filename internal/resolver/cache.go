// Package resolver implements cache-first product resolution with remote
// lookup and synthetic estimate fallbacks.
package resolver

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nutriscan/arnutri-go/internal/nutrition"
)

// ProductCache maps a barcode or normalized search term to its resolved
// record. Entries live for the process lifetime; product data for a given
// barcode is immutable in this domain, so there is no eviction.
type ProductCache struct {
	store *gocache.Cache
}

// NewProductCache creates an empty product cache.
func NewProductCache() *ProductCache {
	return &ProductCache{
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Lookup returns the cached record for a key, if present.
func (c *ProductCache) Lookup(key string) (*nutrition.Record, bool) {
	if v, found := c.store.Get(key); found {
		return v.(*nutrition.Record), true
	}
	return nil, false
}

// Store caches a record under the given key, replacing any previous entry.
func (c *ProductCache) Store(key string, record *nutrition.Record) {
	c.store.Set(key, record, gocache.NoExpiration)
}

// Len returns the number of cached records.
func (c *ProductCache) Len() int {
	return c.store.ItemCount()
}

// Flush removes all cached records.
func (c *ProductCache) Flush() {
	c.store.Flush()
}

// NormalizeTerm reduces a free-text food name to its cache key: the
// substring before the first comma, trimmed and lowercased. Classifier
// output like "bottled water, mineral water" keys on "bottled water".
func NormalizeTerm(term string) string {
	head, _, _ := strings.Cut(term, ",")
	return strings.ToLower(strings.TrimSpace(head))
}

// CacheKey computes the cache key for an identifier. Barcodes are used
// verbatim; text terms are normalized.
func CacheKey(identifier string, kind Kind) string {
	if kind == KindBarcode {
		return identifier
	}
	return NormalizeTerm(identifier)
}
