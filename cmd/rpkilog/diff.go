package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
)

func diffCmd() {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)

	summaryBucket := fs.String("summary-bucket", os.Getenv("summary_bucket"), "Object store bucket holding Summary artifacts")
	dataDir := fs.String("data-dir", "./data/objectstore", "Local filesystem root backing the object store")
	oldKey := fs.String("old", "", "Old summary key (bucket-relative); required")
	newKey := fs.String("new", "", "New summary key (bucket-relative); required")
	out := fs.String("out", "", "Optional local path to write the uncompressed diff artifact JSON")
	fs.Parse(os.Args[2:])

	if *oldKey == "" || *newKey == "" {
		log.Fatal("ERROR: --old and --new are required")
	}

	store, err := localfs.Open(*dataDir)
	if err != nil {
		log.Fatalf("ERROR: open object store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	oldSum, err := fetchSummary(ctx, store, *summaryBucket, *oldKey)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	newSum, err := fetchSummary(ctx, store, *summaryBucket, *newKey)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	start := time.Now()
	records, counts := diffengine.Diff(oldSum.Roas, newSum.Roas)
	elapsed := time.Since(start).Seconds()

	art := artifact.NewDiffArtifact(
		records, counts, time.Now().Unix(),
		&artifact.CacheDescriptor{Filename: *oldKey, Metadata: oldSum.Metadata},
		&artifact.CacheDescriptor{Filename: *newKey, Metadata: newSum.Metadata},
		artifact.Times{Realtime: elapsed},
	)

	log.Printf("INFO: diff complete: old=%d new=%d unchanged=%d replace=%d delete=%d new_verb=%d records=%d",
		counts.Old, counts.New, counts.Unchanged, counts.Replace, counts.Delete, counts.NewCount, len(records))

	if *out != "" {
		data, err := art.MarshalJSON()
		if err != nil {
			log.Fatalf("ERROR: marshal diff artifact: %v", err)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("ERROR: write %s: %v", *out, err)
		}
		log.Printf("INFO: wrote diff artifact: %s", *out)
	}
}
