package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quarrylabs/quarry/pkg/types"
)

// Defaults for cache sizing and semantic matching.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 500
	// SemanticScanLimit bounds how many recent entries a semantic lookup
	// inspects per index. Lookup cost stays fixed regardless of cache size,
	// trading exhaustiveness for freshness.
	SemanticScanLimit = 50
	// SemanticThreshold is the minimum cosine similarity between query
	// embeddings for a semantic hit.
	SemanticThreshold = 0.92
)

// Params is the full normalized parameter tuple of a search. Two requests
// with the same fingerprint are guaranteed to produce the same results, which
// is why racing writers are harmless.
type Params struct {
	Query          string
	IndexName      string
	Limit          int
	MinScore       float64
	Languages      []string
	Mode           string
	SymbolTypes    []string
	SymbolNameGlob string
}

// fingerprint computes a stable hash over the tuple. List-valued fields are
// sorted first so equivalent filters hash identically.
func (p Params) fingerprint() string {
	var b strings.Builder
	b.WriteString(p.Query)
	b.WriteString("|")
	b.WriteString(p.IndexName)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d|%.4f|", p.Limit, p.MinScore)
	b.WriteString(strings.Join(sortedCopy(p.Languages), ","))
	b.WriteString("|")
	b.WriteString(p.Mode)
	b.WriteString("|")
	b.WriteString(strings.Join(sortedCopy(p.SymbolTypes), ","))
	b.WriteString("|")
	b.WriteString(p.SymbolNameGlob)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

// entry is immutable once stored; overwrites replace the whole entry.
type entry struct {
	key       string
	indexName string
	results   []types.SearchResult
	embedding []float32
	storedAt  time.Time
}

// Cache is the two-level query result cache: exact parameter-tuple lookups
// backed by a hash map, and embedding-similarity lookups over the most
// recently inserted entries per index.
//
// One mutex guards both the primary map and the per-index buckets; every
// write keeps the two structures consistent. Operations are cheap and the
// working set is small, so there is no reader/writer split. A single shared
// instance serves all concurrent callers.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	byIndex    map[string][]*entry // insertion order, most recent last
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxEntries overrides the eviction threshold.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithNow overrides the clock, for expiry tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache with the default TTL and capacity.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		byIndex:    make(map[string][]*entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached results for an exact parameter match. An expired
// entry is purged and reported as a miss.
func (c *Cache) Get(params Params) ([]types.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[params.fingerprint()]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.removeLocked(e)
		return nil, false
	}
	return copyResults(e.results), true
}

// GetSemantic returns cached results for a query whose embedding is close
// enough to a previously cached query on the same index. At most
// SemanticScanLimit of the most recently inserted entries are inspected.
func (c *Cache) GetSemantic(indexName string, embedding []float32) ([]types.SearchResult, bool) {
	if len(embedding) == 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.byIndex[indexName]
	scanned := 0
	for i := len(bucket) - 1; i >= 0 && scanned < SemanticScanLimit; i-- {
		e := bucket[i]
		if c.expired(e) {
			c.removeLocked(e)
			continue
		}
		scanned++
		if len(e.embedding) == 0 {
			continue
		}
		if cosineSimilarity(embedding, e.embedding) >= SemanticThreshold {
			return copyResults(e.results), true
		}
	}
	return nil, false
}

// Put stores results under the parameter fingerprint. The embedding may be
// nil, in which case the entry can only be found by exact lookup. Storing
// over an existing fingerprint replaces the entry; entries are never mutated
// in place. Inserting beyond capacity evicts the oldest entries by timestamp.
func (c *Cache) Put(params Params, embedding []float32, results []types.SearchResult) {
	e := &entry{
		key:       params.fingerprint(),
		indexName: params.IndexName,
		results:   copyResults(results),
		embedding: append([]float32(nil), embedding...),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e.storedAt = c.now()
	if old, ok := c.entries[e.key]; ok {
		c.removeLocked(old)
	}
	c.entries[e.key] = e
	c.byIndex[e.indexName] = append(c.byIndex[e.indexName], e)

	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// InvalidateIndex removes every entry cached for the named index and returns
// the number removed. The indexing collaborator calls this after any
// content-changing reindex; there is no partial invalidation.
func (c *Cache) InvalidateIndex(indexName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.byIndex[indexName]
	for _, e := range bucket {
		delete(c.entries, e.key)
	}
	delete(c.byIndex, indexName)
	return len(bucket)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.byIndex = make(map[string][]*entry)
}

// Len returns the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expired(e *entry) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}

// removeLocked deletes an entry from both structures. An index bucket that
// becomes empty is deleted rather than left as an empty slice.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)

	bucket := c.byIndex[e.indexName]
	for i, candidate := range bucket {
		if candidate == e {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(c.byIndex, e.indexName)
	} else {
		c.byIndex[e.indexName] = bucket
	}
}

func (c *Cache) evictOldestLocked() {
	var oldest *entry
	for _, e := range c.entries {
		if oldest == nil || e.storedAt.Before(oldest.storedAt) {
			oldest = e
		}
	}
	if oldest != nil {
		c.removeLocked(oldest)
	}
}

// copyResults clones the result slice so cached values never alias caller
// memory. Score pointers are re-allocated for the same reason.
func copyResults(results []types.SearchResult) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		if out[i].VectorScore != nil {
			v := *out[i].VectorScore
			out[i].VectorScore = &v
		}
		if out[i].KeywordScore != nil {
			v := *out[i].KeywordScore
			out[i].KeywordScore = &v
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
