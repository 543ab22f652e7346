package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/indexloader"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
	"github.com/jeffsw/rpkilog/pkg/searchindex"
	"github.com/jeffsw/rpkilog/pkg/searchindex/lvindex"
	"github.com/jeffsw/rpkilog/pkg/searchindex/memindex"
)

func indexCmd() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)

	diffBucket := fs.String("diff-bucket", os.Getenv("diff_bucket"), "Object store bucket holding diff artifacts")
	dataDir := fs.String("data-dir", "./data/objectstore", "Local filesystem root backing the object store")
	indexDB := fs.String("index-db", "./data/index", "Path to the LevelDB-backed search index")
	key := fs.String("key", "", "Diff artifact key (bucket-relative); required")
	dryRun := fs.Bool("dry-run", false, "Load into a throwaway in-memory index instead of --index-db")
	fs.Parse(os.Args[2:])

	if *key == "" {
		log.Fatal("ERROR: --key is required")
	}

	store, err := localfs.Open(*dataDir)
	if err != nil {
		log.Fatalf("ERROR: open object store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	data, err := fetchAndDecompress(ctx, store, *diffBucket, *key)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	art, err := artifact.ParseDiffArtifact(data)
	if err != nil {
		log.Fatalf("ERROR: parse diff artifact %s: %v", *key, err)
	}
	observedAt, err := artifact.ParseFilenameTimestamp(*key)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	idx, closeIdx := openIndex(*dryRun, *indexDB)
	defer closeIdx()

	loader := &indexloader.Loader{Index: idx}
	result, err := loader.Load(ctx, art, observedAt)
	if err != nil {
		log.Fatalf("ERROR: load %s: %v", *key, err)
	}

	log.Printf("INFO: indexed %d documents into %s (%d failed)",
		result.Indexed, indexloader.IndexName(observedAt), len(result.Failed))
}

// openIndex opens the on-disk index at path, or an in-memory one when
// dryRun is set, returning a close function valid in both cases.
func openIndex(dryRun bool, path string) (searchindex.Index, func()) {
	if dryRun {
		return memindex.New(), func() {}
	}
	lv, err := lvindex.Open(path)
	if err != nil {
		log.Fatalf("ERROR: open index %s: %v", path, err)
	}
	return lv, func() { lv.Close() }
}
