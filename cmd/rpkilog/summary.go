package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
	"github.com/jeffsw/rpkilog/pkg/summary"
)

func summaryCmd() {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)

	snapshotBucket := fs.String("snapshot-bucket", os.Getenv("snapshot_bucket"), "Object store bucket holding raw snapshots")
	summaryBucket := fs.String("summary-bucket", os.Getenv("summary_bucket"), "Object store bucket to write Summary artifacts into")
	dataDir := fs.String("data-dir", "./data/objectstore", "Local filesystem root backing the object store")
	scratchDir := fs.String("scratch", os.TempDir(), "Local scratch directory for in-flight artifacts")
	keep := fs.Bool("keep", false, "Retain the local scratch copy after upload")
	tarKey := fs.String("tar", "", "Snapshot key (bucket-relative) of a gzipped TAR snapshot")
	jsonKey := fs.String("json", "", "Snapshot key (bucket-relative) of a raw validator JSON document")
	tsFlag := fs.String("timestamp", "", "Snapshot timestamp (compact RFC3339, YYYYMMDDTHHMMSSZ); required with --json")
	compress := fs.Bool("compress", false, "bzip2-compress the uploaded Summary artifact")
	fs.Parse(os.Args[2:])

	if *tarKey == "" && *jsonKey == "" {
		log.Fatal("ERROR: one of --tar or --json is required")
	}

	store, err := localfs.Open(*dataDir)
	if err != nil {
		log.Fatalf("ERROR: open object store: %v", err)
	}
	defer store.Close()

	builder := &summary.Builder{
		Store:         store,
		SummaryBucket: *summaryBucket,
		Scratch:       artifact.ScratchFile{Dir: *scratchDir, Keep: *keep},
		Compress:      *compress,
	}

	ctx := context.Background()
	var result *summary.BuildResult

	if *tarKey != "" {
		rc, err := store.Get(ctx, *snapshotBucket, *tarKey)
		if err != nil {
			log.Fatalf("ERROR: fetch snapshot %q: %v", *tarKey, err)
		}
		defer rc.Close()
		result, err = builder.BuildFromTar(ctx, rc)
		if err != nil {
			log.Fatalf("ERROR: build summary from tar: %v", err)
		}
	} else {
		if *tsFlag == "" {
			log.Fatal("ERROR: --timestamp is required with --json")
		}
		ts, err := time.Parse(artifact.TimestampFormat, *tsFlag)
		if err != nil {
			log.Fatalf("ERROR: invalid --timestamp: %v", err)
		}
		rc, err := store.Get(ctx, *snapshotBucket, *jsonKey)
		if err != nil {
			log.Fatalf("ERROR: fetch snapshot %q: %v", *jsonKey, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			log.Fatalf("ERROR: read snapshot: %v", err)
		}
		result, err = builder.BuildFromValidatorJSON(ctx, data, ts)
		if err != nil {
			log.Fatalf("ERROR: build summary from json: %v", err)
		}
	}

	if result.Uploaded {
		log.Printf("INFO: summary built: key=%s roas=%d", result.Key, result.RoaCount)
	} else {
		log.Printf("INFO: summary already present, no-op: key=%s roas=%d", result.Key, result.RoaCount)
	}
}
