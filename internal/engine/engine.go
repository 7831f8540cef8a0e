package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// ErrNilDataset is returned when Run is called without a dataset.
var ErrNilDataset = errors.New("engine: nil dataset")

// Result is the output of one pipeline run.
//
// Results may be shared through the memo cache; callers must not modify
// them.
type Result struct {
	// Version is the dataset version the result was computed from.
	Version string `json:"version,omitempty"`

	// QueryHash is the content hash of the canonical query.
	QueryHash string `json:"query_hash,omitempty"`

	// Total is the number of records in the dataset.
	Total int `json:"total"`

	// Matched is the number of records that passed the filter phase.
	Matched int `json:"matched"`

	// Records are the matched records in sorted order, truncated to
	// Query.Limit when set.
	Records []record.Record `json:"records"`

	// Groups partitions every matched record. Nil when grouping is off.
	Groups []Group `json:"groups,omitempty"`

	// Totals holds the aggregates over every matched record.
	Totals map[string]Metric `json:"totals,omitempty"`
}

// Run executes the pipeline without caching.
//
// The query is validated against the dataset schema first; validation
// errors are returned as joined query.Errors and nothing runs. After that
// Run cannot fail on record contents.
func Run(ds *Dataset, q query.Query, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	return run(ds, q, o.locale)
}

func run(ds *Dataset, q query.Query, locale language.Tag) (*Result, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	schema := ds.Schema
	if schema == nil {
		schema = record.InferSchema(ds.Records)
	}
	if err := query.Validate(schema, q); err != nil {
		return nil, err
	}
	queryHash, err := q.Hash()
	if err != nil {
		return nil, err
	}

	matched := Filter(ds.Records, q.Clauses, q.Search)
	sorted := sortRecords(matched, q.Sort, locale)

	groups := GroupBy(sorted, q.Group)
	for i := range groups {
		groups[i].Metrics = Aggregate(groups[i].Records, q.Aggregates)
	}

	res := &Result{
		Version:   ds.Version,
		QueryHash: queryHash,
		Total:     len(ds.Records),
		Matched:   len(sorted),
		Records:   sorted,
		Groups:    groups,
		Totals:    Aggregate(sorted, q.Aggregates),
	}
	if q.Limit > 0 && len(res.Records) > q.Limit {
		res.Records = res.Records[:q.Limit:q.Limit]
	}
	return res, nil
}

// Engine runs queries with memoization.
//
// Thread-safety: Engine is safe for concurrent use.
type Engine struct {
	opts   options
	cache  *Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an engine. Options configure logging, the sort locale and
// the cache size (DefaultCacheSize unless WithCacheSize is given).
func New(opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{
		opts:  o,
		cache: NewCache(o.cacheSize),
	}
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns the current cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:    e.hits.Load(),
		Misses:  e.misses.Load(),
		Entries: e.cache.Len(),
	}
}

// Run executes q against ds, returning a cached result when the same
// (dataset version, query) pair has run before. Datasets with an empty
// Version are never cached.
func (e *Engine) Run(ds *Dataset, q query.Query) (*Result, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}

	key, cacheable := "", ds.Version != "" && e.opts.cacheSize > 0
	if cacheable {
		k, err := MemoKey(ds.Version, q)
		if err != nil {
			return nil, err
		}
		key = k
		if res, ok := e.cache.Get(key); ok {
			e.hits.Add(1)
			e.opts.logger.Debug("memo hit",
				"version", ds.Version,
				"query_hash", res.QueryHash)
			return res, nil
		}
		e.misses.Add(1)
	}

	start := time.Now()
	res, err := run(ds, q, e.opts.locale)
	if err != nil {
		e.opts.logger.Debug("query rejected",
			"version", ds.Version,
			"error", query.Summary(err))
		return nil, err
	}
	e.opts.logger.Debug("pipeline run",
		"version", ds.Version,
		"query_hash", res.QueryHash,
		"total", res.Total,
		"matched", res.Matched,
		"groups", len(res.Groups),
		"elapsed", time.Since(start))

	if cacheable {
		e.cache.Put(key, res)
	}
	return res, nil
}

// Purge empties the memo cache.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// MemoKey is the cache key for a (dataset version, query) pair.
func MemoKey(version string, q query.Query) (string, error) {
	canonical, err := q.Canonical()
	if err != nil {
		return "", fmt.Errorf("memo key: %w", err)
	}
	data := make([]byte, 0, len(version)+1+len(canonical))
	data = append(data, version...)
	data = append(data, 0x00)
	data = append(data, canonical...)
	return record.Hash(record.DomainMemo, data), nil
}
