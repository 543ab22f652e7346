package indexloader

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/roa"
	"github.com/jeffsw/rpkilog/pkg/searchindex"
	"github.com/jeffsw/rpkilog/pkg/searchindex/memindex"
)

func mustRoa(t *testing.T, prefix string, maxLength int, asn uint32, ta string, expires int64) *roa.Roa {
	t.Helper()
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		t.Fatalf("parse prefix: %v", err)
	}
	r, err := roa.New(p, maxLength, asn, ta, expires)
	if err != nil {
		t.Fatalf("new roa: %v", err)
	}
	return r
}

func sampleArtifact(t *testing.T) *artifact.DiffArtifact {
	t.Helper()
	oldRoas := []*roa.Roa{mustRoa(t, "192.0.2.0/24", 24, 65001, "ARIN", 1000)}
	newRoas := []*roa.Roa{mustRoa(t, "192.0.2.0/24", 24, 65001, "ARIN", 2000)}
	records, counts := diffengine.Diff(oldRoas, newRoas)
	return artifact.NewDiffArtifact(records, counts, 1700000000, nil, nil, artifact.Times{})
}

func TestIndexNameDerivesFromMonth(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got, want := IndexName(ts), "diff-202603"; got != want {
		t.Fatalf("IndexName() = %q, want %q", got, want)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	art := sampleArtifact(t)
	observedAt := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	idx := memindex.New()
	loader := &Loader{Index: idx}

	ctx := context.Background()
	first, err := loader.Load(ctx, art, observedAt)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Indexed != len(art.VrpDiffs) {
		t.Fatalf("first load indexed = %d, want %d", first.Indexed, len(art.VrpDiffs))
	}

	second, err := loader.Load(ctx, art, observedAt)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Indexed != first.Indexed {
		t.Fatalf("second load indexed = %d, want %d (idempotent overwrite)", second.Indexed, first.Indexed)
	}

	docs, err := idx.Query(ctx, searchindex.Query{Index: IndexName(observedAt)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != len(art.VrpDiffs) {
		t.Fatalf("re-running Load duplicated documents: got %d docs, want %d", len(docs), len(art.VrpDiffs))
	}
}

func TestDocumentIDDeterministic(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	a := DocumentID(ts, "192.0.2.0/24", 24, 65001, "ARIN")
	b := DocumentID(ts, "192.0.2.0/24", 24, 65001, "ARIN")
	if a != b {
		t.Fatalf("DocumentID not deterministic: %q != %q", a, b)
	}
	if c := DocumentID(ts, "192.0.2.0/24", 23, 65001, "ARIN"); c == a {
		t.Fatalf("DocumentID did not vary with maxLength")
	}
}
