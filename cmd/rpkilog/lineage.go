package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/lineage"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
)

func lineageCmd() {
	fs := flag.NewFlagSet("lineage", flag.ExitOnError)

	summaryBucket := fs.String("summary-bucket", os.Getenv("summary_bucket"), "Object store bucket holding Summary artifacts")
	diffBucket := fs.String("diff-bucket", os.Getenv("diff_bucket"), "Object store bucket to write the diff artifact into")
	dataDir := fs.String("data-dir", "./data/objectstore", "Local filesystem root backing the object store")
	scratchDir := fs.String("scratch", os.TempDir(), "Local scratch directory for in-flight artifacts")
	keep := fs.Bool("keep", false, "Retain the local scratch copy after upload")
	newKey := fs.String("new", "", "New summary key (bucket-relative); required")
	fs.Parse(os.Args[2:])

	if *newKey == "" {
		log.Fatal("ERROR: --new is required")
	}

	store, err := localfs.Open(*dataDir)
	if err != nil {
		log.Fatalf("ERROR: open object store: %v", err)
	}
	defer store.Close()

	resolver := &lineage.Resolver{
		Store:         store,
		SummaryBucket: *summaryBucket,
		DiffBucket:    *diffBucket,
		Scratch:       artifact.ScratchFile{Dir: *scratchDir, Keep: *keep},
	}

	ctx := context.Background()

	oldKey, err := resolver.Resolve(ctx, *newKey)
	if err != nil {
		if errors.Is(err, lineage.ErrNoPredecessor) {
			// Lineage-absent: first-ever invocation, or first after a
			// bucket reset. Warn and exit 0 rather than failing the run.
			log.Printf("WARN: %v for %s; skipping diff", err, *newKey)
			return
		}
		log.Fatalf("ERROR: resolve lineage for %s: %v", *newKey, err)
	}

	art, diffKey, err := resolver.RunDiff(ctx, oldKey, *newKey)
	if err != nil {
		log.Fatalf("ERROR: run diff: %v", err)
	}

	log.Printf("INFO: diff complete: old=%s new=%s key=%s diff_count=%d", oldKey, *newKey, diffKey, art.Metadata.DiffCount)
}
