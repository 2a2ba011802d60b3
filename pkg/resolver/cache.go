package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/navbytes/requestkit/pkg/template"
	"github.com/navbytes/requestkit/pkg/variable"
)

// ParseCache memoizes segment trees keyed by the raw template string, so a
// variable's value is tokenized once rather than on every recursive step.
// Size-bounded; eviction drops the whole map, which is cheap to rebuild.
type ParseCache struct {
	mu      sync.RWMutex
	entries map[string]*template.ParseResult
	maxSize int
}

// NewParseCache creates a parse cache with a default size bound.
func NewParseCache() *ParseCache {
	return NewParseCacheWithSize(1000)
}

// NewParseCacheWithSize creates a parse cache bounded to maxSize entries.
func NewParseCacheWithSize(maxSize int) *ParseCache {
	return &ParseCache{
		entries: make(map[string]*template.ParseResult),
		maxSize: maxSize,
	}
}

// Parse returns the cached segment tree for tmpl, parsing on first use.
func (c *ParseCache) Parse(tmpl string) *template.ParseResult {
	c.mu.RLock()
	cached, ok := c.entries[tmpl]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	parsed := template.Parse(tmpl)

	c.mu.Lock()
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string]*template.ParseResult)
	}
	c.entries[tmpl] = parsed
	c.mu.Unlock()

	return parsed
}

// Len returns the number of cached parse results.
func (c *ParseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheStats tracks result cache performance.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type resultEntry struct {
	value    string
	resolved []string
	cachedAt time.Time
}

// ResultCache memoizes successful deterministic resolutions, keyed by a hash
// of the template plus a canonicalized snapshot of the context: its variables
// per scope and the request record.
// The same template resolved under a changed context therefore misses by
// construction; InvalidateAll exists for explicit flushes when stored
// variables change, since serving a stale resolved value (a rotated token)
// is a correctness bug rather than a staleness inconvenience.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]resultEntry
	stats   CacheStats
	maxSize int
	ttl     time.Duration
}

// NewResultCache creates a result cache with default bounds.
func NewResultCache() *ResultCache {
	return NewResultCacheWithConfig(500, 5*time.Minute)
}

// NewResultCacheWithConfig creates a result cache bounded to maxSize entries
// with the given TTL.
func NewResultCacheWithConfig(maxSize int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[string]resultEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns a cached result for the template/context pair, if present and
// fresh. The returned Result is a copy; callers may not mutate cache state
// through it.
func (c *ResultCache) Get(tmpl string, ctx *variable.ResolutionContext) (*Result, bool) {
	key := cacheKey(tmpl, ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.cachedAt) > c.ttl {
		if ok {
			delete(c.entries, key)
		}
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	return &Result{
		Success:           true,
		Value:             entry.value,
		ResolvedVariables: append([]string(nil), entry.resolved...),
	}, true
}

// Put stores a successful resolution. Callers must not cache results that
// touched non-deterministic functions; the engine enforces this.
func (c *ResultCache) Put(tmpl string, ctx *variable.ResolutionContext, result *Result) {
	if result == nil || !result.Success {
		return
	}

	key := cacheKey(tmpl, ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = resultEntry{
		value:    result.Value,
		resolved: append([]string(nil), result.ResolvedVariables...),
		cachedAt: time.Now(),
	}
}

// InvalidateAll drops every cached result. Call whenever any variable in a
// relevant scope is created, updated, deleted, or toggled.
func (c *ResultCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]resultEntry)
}

// Stats returns a copy of the cache counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// cacheKey hashes the template together with a canonical rendering of the
// full context: every variable per scope plus the intercepted request, so any
// context change produces a new key. Fields are length-prefixed before
// hashing; printable separators would let a variable value forge another
// context's rendering.
func cacheKey(tmpl string, ctx *variable.ResolutionContext) string {
	h := sha256.New()
	writeField(h, tmpl)

	for _, scope := range variable.PrecedenceOrder {
		vars := ctx.VariablesForScope(scope)
		entries := make([]string, 0, len(vars))
		for _, v := range vars {
			entries = append(entries, encodeField(v.Name)+encodeField(v.Value)+encodeField(strconv.FormatBool(v.Enabled)))
		}
		sort.Strings(entries)
		writeField(h, scope.String())
		for _, entry := range entries {
			writeField(h, entry)
		}
	}

	writeRequest(h, ctx.Request)

	return hex.EncodeToString(h.Sum(nil))
}

// writeRequest folds the request record into the key. The accessor functions
// (domain, path, query, ...) are deterministic only for a fixed request, so a
// result computed against one request must never be served for another. The
// interception timestamp is excluded: the time-based functions that read it
// are non-deterministic and never cached in the first place.
func writeRequest(h io.Writer, req *variable.RequestContext) {
	if req == nil {
		writeField(h, "")
		return
	}
	writeField(h, req.URL)
	writeField(h, req.Method)
	writeField(h, req.Domain)
	writeField(h, req.Path)
	writeField(h, req.Protocol)
	writeSortedMap(h, req.Query)
	writeSortedMap(h, req.Headers)
}

func writeSortedMap(h io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(h, encodeField(k)+encodeField(m[k]))
	}
	// Terminator so adjacent maps of different sizes cannot run together.
	writeField(h, "")
}

// encodeField renders s with a length prefix so concatenated fields cannot
// collide across boundaries.
func encodeField(s string) string {
	return strconv.Itoa(len(s)) + ":" + s
}

func writeField(h io.Writer, s string) {
	io.WriteString(h, encodeField(s))
}
