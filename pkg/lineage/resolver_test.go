package lineage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
)

func openStore(t *testing.T) *localfs.Store {
	t.Helper()
	store, err := localfs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open localfs store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func putSummary(t *testing.T, store *localfs.Store, bucket, key, roasJSON string) {
	t.Helper()
	body := `{"metadata":{"source":"test"},"roas":[` + roasJSON + `]}`
	if err := store.Put(context.Background(), bucket, key, strings.NewReader(body)); err != nil {
		t.Fatalf("put %s/%s: %v", bucket, key, err)
	}
}

func TestResolveFindsGreatestStrictlyLesserPredecessor(t *testing.T) {
	store := openStore(t)
	putSummary(t, store, "summaries", "20260101T000000Z.json", "")
	putSummary(t, store, "summaries", "20260201T000000Z.json", "")
	putSummary(t, store, "summaries", "20260301T000000Z.json", "")

	r := &Resolver{Store: store, SummaryBucket: "summaries"}
	old, err := r.Resolve(context.Background(), "20260301T000000Z.json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if old != "20260201T000000Z.json" {
		t.Errorf("predecessor = %q, want %q", old, "20260201T000000Z.json")
	}
}

func TestResolveNoPredecessor(t *testing.T) {
	store := openStore(t)
	putSummary(t, store, "summaries", "20260101T000000Z.json", "")

	r := &Resolver{Store: store, SummaryBucket: "summaries"}
	_, err := r.Resolve(context.Background(), "20260101T000000Z.json")
	if !errors.Is(err, ErrNoPredecessor) {
		t.Fatalf("err = %v, want %v", err, ErrNoPredecessor)
	}
}

func TestRunDiffUploadsArtifact(t *testing.T) {
	store := openStore(t)
	oldRoa := `{"asn":65001,"expires":1000,"maxLength":24,"prefix":"192.0.2.0/24","ta":"test"}`
	newRoa := `{"asn":65001,"expires":2000,"maxLength":24,"prefix":"192.0.2.0/24","ta":"test"}`
	putSummary(t, store, "summaries", "20260101T000000Z.json", oldRoa)
	putSummary(t, store, "summaries", "20260201T000000Z.json", newRoa)

	r := &Resolver{
		Store:         store,
		SummaryBucket: "summaries",
		DiffBucket:    "diffs",
		Scratch:       artifact.ScratchFile{Dir: t.TempDir()},
	}

	art, key, err := r.RunDiff(context.Background(), "20260101T000000Z.json", "20260201T000000Z.json")
	if err != nil {
		t.Fatalf("run diff: %v", err)
	}
	if key != "20260201T000000Z.vrpdiff.json.bz2" {
		t.Errorf("diff key = %q, want %q", key, "20260201T000000Z.vrpdiff.json.bz2")
	}
	if art.Metadata.DiffCount != 1 {
		t.Fatalf("diff_count = %d, want 1", art.Metadata.DiffCount)
	}

	exists, err := store.Exists(context.Background(), "diffs", key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected diff artifact to be uploaded to the diff bucket")
	}
}
