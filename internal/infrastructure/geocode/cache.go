package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"ProviderDirectory/internal/domain"
)

// CacheEntry is one persisted lookup result: either a coordinate pair
// or an error marker recording that the address is permanently
// unresolvable and must not be retried.
type CacheEntry struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
	Err bool    `json:"error,omitempty"`
}

// Coordinate converts a successful entry to a domain coordinate.
func (e CacheEntry) Coordinate() *domain.Coordinate {
	if e.Err {
		return nil
	}
	return &domain.Coordinate{Lat: e.Lat, Lon: e.Lon}
}

type cacheFile struct {
	CreatedUTC string                `json:"created_utc"`
	UpdatedUTC string                `json:"updated_utc"`
	Entries    map[string]CacheEntry `json:"entries"`
}

// Cache is the persistent normalized-address → coordinate mapping. It
// grows monotonically within a run and is the single source of truth
// across runs. Loaded fully at start, written fully at end; safe to
// resume after an aborted run because entries only accumulate.
type Cache struct {
	path    string
	entries map[string]CacheEntry
	created string
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	trailingPunct = regexp.MustCompile(`[.,;:]+$`)
)

// NormalizeKey folds an address into its cache key: lower case,
// terminal punctuation stripped, whitespace collapsed.
func NormalizeKey(address string) string {
	key := strings.ToLower(strings.TrimSpace(address))
	key = trailingPunct.ReplaceAllString(key, "")
	key = whitespace.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

// NewCache returns an empty cache bound to a path.
func NewCache(path string) *Cache {
	return &Cache{path: path, entries: map[string]CacheEntry{}}
}

// LoadCache reads the cache file; a missing file yields an empty cache.
func LoadCache(path string) (*Cache, error) {
	cache := NewCache(path)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cache, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read geocode cache %s", path)
	}

	var file cacheFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(err, "parse geocode cache %s", path)
	}
	if file.Entries != nil {
		cache.entries = file.Entries
	}
	cache.created = file.CreatedUTC

	return cache, nil
}

// Lookup returns the cached entry for an address, if any.
func (c *Cache) Lookup(address string) (CacheEntry, bool) {
	entry, ok := c.entries[NormalizeKey(address)]
	return entry, ok
}

// PutCoordinate stores a successful lookup.
func (c *Cache) PutCoordinate(address string, coord domain.Coordinate) {
	c.entries[NormalizeKey(address)] = CacheEntry{Lat: coord.Lat, Lon: coord.Lon}
}

// PutError stores a permanent-failure marker for an address.
func (c *Cache) PutError(address string) {
	c.entries[NormalizeKey(address)] = CacheEntry{Err: true}
}

// Len reports the number of cached addresses.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Save writes the cache back to disk via a temp-file rename, so a
// killed run leaves the previous file intact.
func (c *Cache) Save() error {
	now := time.Now().UTC().Format(time.RFC3339)
	created := c.created
	if created == "" {
		created = now
	}

	raw, err := json.MarshalIndent(cacheFile{
		CreatedUTC: created,
		UpdatedUTC: now,
		Entries:    c.entries,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal geocode cache")
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create cache dir %s", dir)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write geocode cache %s", tmp)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrapf(err, "replace geocode cache %s", c.path)
	}

	return nil
}
