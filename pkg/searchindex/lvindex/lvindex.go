// Package lvindex implements searchindex.Index on top of a local LevelDB
// database, giving the rpkilog CLI a persistent backend that survives
// across process invocations without requiring a real search cluster.
// Grounded on iporgdb.DB's mutex-guarded leveldb+msgpack wrapper: schemas
// and documents are both msgpack-encoded records stored under flat key
// prefixes, the same shape iporgdb uses for its IP-range records.
package lvindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"github.com/jeffsw/rpkilog/pkg/searchindex"
	"github.com/jeffsw/rpkilog/pkg/util/workers"
)

const (
	schemaKeyPrefix = "schema/"
	docKeyPrefix    = "doc/"
)

// Index is a durable searchindex.Index backed by a single LevelDB file.
// Safe for concurrent use.
type Index struct {
	db *leveldb.DB
	mu sync.Mutex

	// BatchSize and RetryConfig mirror memindex's knobs so callers such as
	// tests can shrink both to keep runtime short.
	BatchSize   int
	RetryConfig workers.RetryConfig

	// Limiter paces batch submissions against the backing LevelDB file so
	// a large backfill doesn't submit hundreds of batches back to back;
	// nil means unlimited.
	Limiter *rate.Limiter
}

// Open opens or creates a LevelDB-backed search index at path, rate
// limited to 50 batches/sec with a burst of 10.
func Open(path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{Compression: opt.SnappyCompression})
	if err != nil {
		return nil, fmt.Errorf("lvindex: open %s: %w", path, err)
	}
	return &Index{
		db:          db,
		BatchSize:   200,
		RetryConfig: workers.BulkIndexRetryConfig(),
		Limiter:     rate.NewLimiter(rate.Limit(50), 10),
	}, nil
}

// Close releases the underlying LevelDB handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// storedDoc is the msgpack-on-disk shape of one indexed document. Field
// values pass through as-is except time.Time, which is normalized to a
// Unix-seconds int64 so msgpack round-trips it exactly.
type storedDoc struct {
	ID     string
	Source map[string]any
}

func (ix *Index) schemaKey(name string) []byte {
	return []byte(schemaKeyPrefix + name)
}

func (ix *Index) docKey(name, id string) []byte {
	return []byte(docKeyPrefix + name + "/" + id)
}

func (ix *Index) EnsureIndex(ctx context.Context, name string, schema searchindex.IndexSchema) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, err := ix.db.Get(ix.schemaKey(name), nil)
	if err == nil {
		return nil // already exists: not an error
	}
	if err != leveldb.ErrNotFound {
		return fmt.Errorf("lvindex: check schema %s: %w", name, err)
	}

	data, err := msgpack.Marshal(schema)
	if err != nil {
		return fmt.Errorf("lvindex: encode schema %s: %w", name, err)
	}
	if err := ix.db.Put(ix.schemaKey(name), data, nil); err != nil {
		return fmt.Errorf("lvindex: create index %s: %w", name, err)
	}
	return nil
}

func (ix *Index) Bulk(ctx context.Context, name string, docs []searchindex.Document) (searchindex.BulkResult, error) {
	batchSize := ix.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	var result searchindex.BulkResult
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
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

	wb := new(leveldb.Batch)
	for _, d := range batch {
		normalized := normalizeSource(d.Source)
		data, err := msgpack.Marshal(storedDoc{ID: d.ID, Source: normalized})
		if err != nil {
			return fmt.Errorf("lvindex: encode document %s: %w", d.ID, err)
		}
		wb.Put(ix.docKey(name, d.ID), data)
	}
	// Deterministic document IDs make this overwrite-by-key commit
	// idempotent: re-running Bulk over the same diff artifact leaves the
	// same final documents in place.
	return ix.db.Write(wb, nil)
}

// normalizeSource converts time.Time fields to Unix seconds so msgpack
// round-trips the document without needing a custom time extension, and
// restores them to time.Time on read (see denormalizeSource).
func normalizeSource(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Unix()
			out[k+"__time"] = true
			continue
		}
		out[k] = v
	}
	return out
}

func denormalizeSource(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if strings.HasSuffix(k, "__time") {
			continue
		}
		if _, isTime := src[k+"__time"]; isTime {
			if secs, ok := toInt64(v); ok {
				out[k] = time.Unix(secs, 0).UTC()
				continue
			}
		}
		out[k] = v
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func (ix *Index) Query(ctx context.Context, q searchindex.Query) ([]searchindex.Document, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var after, before time.Time
	var err error
	if q.ObservationAfter != "" {
		after, err = time.Parse(time.RFC3339, q.ObservationAfter)
		if err != nil {
			return nil, fmt.Errorf("lvindex: invalid observation_after: %w", err)
		}
	}
	if q.ObservationBefore != "" {
		before, err = time.Parse(time.RFC3339, q.ObservationBefore)
		if err != nil {
			return nil, fmt.Errorf("lvindex: invalid observation_before: %w", err)
		}
	}

	prefix := docKeyPrefix
	if q.Index != "" {
		prefix += q.Index + "/"
	}
	iter := ix.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var matches []searchindex.Document
	for iter.Next() {
		var stored storedDoc
		if err := msgpack.Unmarshal(iter.Value(), &stored); err != nil {
			return nil, fmt.Errorf("lvindex: decode document: %w", err)
		}
		source := denormalizeSource(stored.Source)

		if q.PrefixCIDR != "" && fmt.Sprint(source["prefix"]) != q.PrefixCIDR {
			continue
		}
		if q.ASN != nil {
			if asn, ok := toUint32(source["asn"]); !ok || asn != *q.ASN {
				continue
			}
		}
		if q.TA != "" && fmt.Sprint(source["ta"]) != q.TA {
			continue
		}
		if ts, ok := source["observation_timestamp"].(time.Time); ok {
			if !after.IsZero() && ts.Before(after) {
				continue
			}
			if !before.IsZero() && !ts.Before(before) {
				continue
			}
		}
		matches = append(matches, searchindex.Document{ID: stored.ID, Source: source})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("lvindex: iterate: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int64:
		return uint32(n), true
	case int:
		return uint32(n), true
	case uint64:
		return uint32(n), true
	}
	return 0, false
}
