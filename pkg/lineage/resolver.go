// Package lineage implements the Lineage Resolver (C4): given a new
// summary key, locate its immediate predecessor by embedded timestamp
// and drive the Diff Engine.
package lineage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/objectstore"
)

type Error string

func (e Error) Error() string { return string(e) }

// ErrNoPredecessor signals the "lineage-absent" condition: the
// first-ever invocation, or the first after a bucket reset. Callers
// should treat this as a warning and exit 0, not as a failure.
const ErrNoPredecessor Error = "lineage: no predecessor summary found"

// Resolver locates predecessor summaries and orchestrates diff
// generation between consecutive summaries.
type Resolver struct {
	Store         objectstore.Store
	SummaryBucket string
	DiffBucket    string
	Scratch       artifact.ScratchFile
}

// Resolve returns the key of the summary with the greatest embedded
// timestamp strictly less than newKey's, or ErrNoPredecessor.
func (r *Resolver) Resolve(ctx context.Context, newKey string) (oldKey string, err error) {
	newTS, err := artifact.ParseFilenameTimestamp(newKey)
	if err != nil {
		return "", fmt.Errorf("lineage: %w", err)
	}

	objs, err := r.Store.List(ctx, r.SummaryBucket, "")
	if err != nil {
		return "", fmt.Errorf("lineage: list summary bucket: %w", err)
	}

	type candidate struct {
		key string
		ts  time.Time
	}
	var candidates []candidate
	for _, o := range objs {
		ts, err := artifact.ParseFilenameTimestamp(o.Key)
		if err != nil {
			continue // not a summary key; skip
		}
		if ts.Before(newTS) {
			candidates = append(candidates, candidate{key: o.Key, ts: ts})
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoPredecessor
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ts.Before(candidates[j].ts) })
	best := candidates[len(candidates)-1]
	return best.key, nil
}

// RunDiff fetches oldKey and newKey from the summary bucket, runs the
// Diff Engine, and uploads the resulting diff artifact to the diff
// bucket. It returns the diff artifact and its object-store key.
func (r *Resolver) RunDiff(ctx context.Context, oldKey, newKey string) (*artifact.DiffArtifact, string, error) {
	newTS, err := artifact.ParseFilenameTimestamp(newKey)
	if err != nil {
		return nil, "", fmt.Errorf("lineage: %w", err)
	}

	oldSum, oldMeta, err := r.fetchSummary(ctx, oldKey)
	if err != nil {
		return nil, "", fmt.Errorf("lineage: fetch old summary %q: %w", oldKey, err)
	}
	newSum, newMeta, err := r.fetchSummary(ctx, newKey)
	if err != nil {
		return nil, "", fmt.Errorf("lineage: fetch new summary %q: %w", newKey, err)
	}

	start := time.Now()
	records, counts := diffengine.Diff(oldSum.Roas, newSum.Roas)
	elapsed := time.Since(start).Seconds()

	art := artifact.NewDiffArtifact(
		records, counts, time.Now().Unix(),
		&artifact.CacheDescriptor{Filename: oldKey, Metadata: oldMeta},
		&artifact.CacheDescriptor{Filename: newKey, Metadata: newMeta},
		artifact.Times{Realtime: elapsed},
	)

	out, err := art.MarshalJSON()
	if err != nil {
		return nil, "", fmt.Errorf("lineage: marshal diff artifact: %w", err)
	}
	out, err = artifact.CompressBzip2(out)
	if err != nil {
		return nil, "", fmt.Errorf("lineage: compress diff artifact: %w", err)
	}

	key := artifact.DiffKey(newTS)
	if _, err := r.Scratch.WriteAndUpload(ctx, r.Store, r.DiffBucket, key, key, out); err != nil {
		return nil, "", fmt.Errorf("lineage: upload diff artifact: %w", err)
	}

	return art, key, nil
}

func (r *Resolver) fetchSummary(ctx context.Context, key string) (*artifact.Summary, []byte, error) {
	rc, err := r.Store.Get(ctx, r.SummaryBucket, key)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("read object: %w", err)
	}
	if isBzip2Key(key) {
		raw, err = artifact.DecompressBzip2(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, err
		}
	}

	sum, err := artifact.ParseSummary(raw)
	if err != nil {
		return nil, nil, err
	}
	return sum, sum.Metadata, nil
}

func isBzip2Key(key string) bool {
	return len(key) > 4 && key[len(key)-4:] == ".bz2"
}
