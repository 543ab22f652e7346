// Package memindex is an in-memory searchindex.Index used by tests and by
// the backfill CLI's --dry-run mode. It exercises the same deterministic-
// ID idempotence contract a real search engine would provide: bulk
// loading the same document twice overwrites rather than duplicates.
package memindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeffsw/rpkilog/pkg/searchindex"
	"github.com/jeffsw/rpkilog/pkg/util/workers"
)

// Index is a trivial map-of-maps store: index name -> document ID ->
// document. Safe for concurrent use.
type Index struct {
	mu      sync.Mutex
	schemas map[string]searchindex.IndexSchema
	docs    map[string]map[string]searchindex.Document

	// BatchSize controls how many documents Bulk submits per retried
	// batch; RetryConfig controls the backoff policy. Tests may shrink
	// both to keep runtime short.
	BatchSize   int
	RetryConfig workers.RetryConfig

	// Limiter paces batch submissions the same way lvindex's does; nil
	// (the default, including what New returns) means unlimited, which
	// is what tests and --dry-run want.
	Limiter *rate.Limiter

	// FailNextN, if > 0, makes the next N batch submissions return a
	// transient error before succeeding, for exercising the retry path.
	FailNextN int
}

// New returns an empty in-memory index with the production bulk-batching
// and retry defaults: batch size 200, backoff 5s/20s, 5 retries.
func New() *Index {
	return &Index{
		schemas:     make(map[string]searchindex.IndexSchema),
		docs:        make(map[string]map[string]searchindex.Document),
		BatchSize:   200,
		RetryConfig: workers.BulkIndexRetryConfig(),
	}
}

func (ix *Index) EnsureIndex(ctx context.Context, name string, schema searchindex.IndexSchema) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.schemas[name]; exists {
		return nil // already exists: not an error
	}
	ix.schemas[name] = schema
	ix.docs[name] = make(map[string]searchindex.Document)
	return nil
}

func (ix *Index) Bulk(ctx context.Context, name string, docs []searchindex.Document) (searchindex.BulkResult, error) {
	ix.mu.Lock()
	if _, ok := ix.docs[name]; !ok {
		ix.docs[name] = make(map[string]searchindex.Document)
	}
	ix.mu.Unlock()

	var result searchindex.BulkResult
	for start := 0; start < len(docs); start += ix.BatchSize {
		end := start + ix.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		err := workers.RateLimitedRetry(ctx, ix.Limiter, ix.RetryConfig, func() error {
			return ix.submitBatch(name, batch)
		})
		if err != nil {
			for _, d := range batch {
				result.Failed = append(result.Failed, searchindex.BulkFailure{ID: d.ID, Error: err})
			}
			return result, fmt.Errorf("%w: %v", searchindex.ErrBatchFailed, err)
		}
		result.Indexed += len(batch)
	}
	return result, nil
}

func (ix *Index) submitBatch(name string, batch []searchindex.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.FailNextN > 0 {
		ix.FailNextN--
		return fmt.Errorf("simulated transient bulk failure")
	}
	for _, d := range batch {
		ix.docs[name][d.ID] = d // overwrite: deterministic IDs make this idempotent
	}
	return nil
}

func (ix *Index) Query(ctx context.Context, q searchindex.Query) ([]searchindex.Document, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var after, before time.Time
	var err error
	if q.ObservationAfter != "" {
		after, err = time.Parse(time.RFC3339, q.ObservationAfter)
		if err != nil {
			return nil, fmt.Errorf("memindex: invalid observation_after: %w", err)
		}
	}
	if q.ObservationBefore != "" {
		before, err = time.Parse(time.RFC3339, q.ObservationBefore)
		if err != nil {
			return nil, fmt.Errorf("memindex: invalid observation_before: %w", err)
		}
	}

	var matches []searchindex.Document
	for name, docs := range ix.docs {
		if q.Index != "" && q.Index != name {
			continue
		}
		for _, d := range docs {
			if q.PrefixCIDR != "" && fmt.Sprint(d.Source["prefix"]) != q.PrefixCIDR {
				continue
			}
			if q.ASN != nil {
				asn, _ := d.Source["asn"].(uint32)
				if asn != *q.ASN {
					continue
				}
			}
			if q.TA != "" && fmt.Sprint(d.Source["ta"]) != q.TA {
				continue
			}
			if ts, ok := d.Source["observation_timestamp"].(time.Time); ok {
				if !after.IsZero() && ts.Before(after) {
					continue
				}
				if !before.IsZero() && !ts.Before(before) {
					continue
				}
			}
			matches = append(matches, d)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}
