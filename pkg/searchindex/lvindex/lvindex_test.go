package lvindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeffsw/rpkilog/pkg/searchindex"
)

func openIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.ldb"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func sampleDoc(id, prefix string, asn uint32, observedAt time.Time) searchindex.Document {
	return searchindex.Document{
		ID: id,
		Source: map[string]any{
			"observation_timestamp": observedAt,
			"verb":                  "NEW",
			"prefix":                prefix,
			"maxLength":             24,
			"asn":                   asn,
			"ta":                    "test",
		},
	}
}

func TestEnsureIndexIsIdempotent(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	schema := searchindex.IndexSchema{NumberOfShards: 3}
	if err := ix.EnsureIndex(ctx, "diff-202603", schema); err != nil {
		t.Fatalf("first EnsureIndex: %v", err)
	}
	if err := ix.EnsureIndex(ctx, "diff-202603", schema); err != nil {
		t.Fatalf("second EnsureIndex should be a no-op, got: %v", err)
	}
}

func TestBulkLoadIsIdempotentAcrossProcessRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.ldb")
	observedAt := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	ix, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	ix.EnsureIndex(ctx, "diff-202603", searchindex.IndexSchema{})
	docs := []searchindex.Document{
		sampleDoc("a", "192.0.2.0/24", 65001, observedAt),
		sampleDoc("b", "198.51.100.0/24", 65002, observedAt),
	}
	if _, err := ix.Bulk(ctx, "diff-202603", docs); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen, simulating a fresh process, and re-run the same batch.
	ix2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ix2.Close()
	ix2.EnsureIndex(ctx, "diff-202603", searchindex.IndexSchema{})
	if _, err := ix2.Bulk(ctx, "diff-202603", docs); err != nil {
		t.Fatalf("second bulk: %v", err)
	}

	got, err := ix2.Query(ctx, searchindex.Query{Index: "diff-202603"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(docs) = %d, want 2 (re-running Bulk should not duplicate)", len(got))
	}
}

func TestQueryFiltersByPrefixAsnAndTime(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	ix.EnsureIndex(ctx, "diff-202603", searchindex.IndexSchema{})

	t1 := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	docs := []searchindex.Document{
		sampleDoc("a", "192.0.2.0/24", 65001, t1),
		sampleDoc("b", "192.0.2.0/24", 65002, t2),
		sampleDoc("c", "198.51.100.0/24", 65001, t2),
	}
	if _, err := ix.Bulk(ctx, "diff-202603", docs); err != nil {
		t.Fatalf("bulk: %v", err)
	}

	asn := uint32(65001)
	got, err := ix.Query(ctx, searchindex.Query{
		Index:            "diff-202603",
		PrefixCIDR:       "192.0.2.0/24",
		ASN:              &asn,
		ObservationAfter: "2026-03-10T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no match (doc a is before the observation_after bound), got %d", len(got))
	}

	got, err = ix.Query(ctx, searchindex.Query{
		Index:      "diff-202603",
		PrefixCIDR: "192.0.2.0/24",
		ASN:        &asn,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected match set: %+v", got)
	}
}
