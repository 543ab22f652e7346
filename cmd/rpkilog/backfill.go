package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sort"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/indexloader"
	"github.com/jeffsw/rpkilog/pkg/objectstore/localfs"
)

// backfillCmd re-runs the Index Loader over every diff artifact already
// present in a bucket, newest first, so the most recent history becomes
// queryable first.
func backfillCmd() {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)

	diffBucket := fs.String("diff-bucket", os.Getenv("diff_bucket"), "Object store bucket holding diff artifacts")
	dataDir := fs.String("data-dir", "./data/objectstore", "Local filesystem root backing the object store")
	indexDB := fs.String("index-db", "./data/index", "Path to the LevelDB-backed search index")
	dryRun := fs.Bool("dry-run", false, "Load into a throwaway in-memory index instead of --index-db")
	dateMin := fs.String("date-min", "", "Lower bound on diff timestamp (YYYYMMDDTHHMMSSZ), inclusive")
	dateMax := fs.String("date-max", "", "Upper bound on diff timestamp (YYYYMMDDTHHMMSSZ), exclusive")
	maxFiles := fs.Int("max-files", 0, "Maximum number of diff artifacts to load (0 = unlimited)")
	limitCPUPct := fs.Int("limit-cpu-pct", 0, "Throttle so CPU usage stays near this percent by sleeping between files (0 = unlimited, else 1..100)")
	fs.Parse(os.Args[2:])

	if *limitCPUPct < 0 || *limitCPUPct > 100 {
		log.Fatal("ERROR: --limit-cpu-pct must be in [0, 100]")
	}

	store, err := localfs.Open(*dataDir)
	if err != nil {
		log.Fatalf("ERROR: open object store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	objs, err := store.List(ctx, *diffBucket, "")
	if err != nil {
		log.Fatalf("ERROR: list diff bucket: %v", err)
	}

	var minTS, maxTS time.Time
	if *dateMin != "" {
		minTS, err = time.Parse(artifact.TimestampFormat, *dateMin)
		if err != nil {
			log.Fatalf("ERROR: invalid --date-min: %v", err)
		}
	}
	if *dateMax != "" {
		maxTS, err = time.Parse(artifact.TimestampFormat, *dateMax)
		if err != nil {
			log.Fatalf("ERROR: invalid --date-max: %v", err)
		}
	}

	type candidate struct {
		key string
		ts  time.Time
	}
	var candidates []candidate
	for _, o := range objs {
		ts, err := artifact.ParseFilenameTimestamp(o.Key)
		if err != nil {
			continue // not a diff artifact key; skip
		}
		if !minTS.IsZero() && ts.Before(minTS) {
			continue
		}
		if !maxTS.IsZero() && !ts.Before(maxTS) {
			continue
		}
		candidates = append(candidates, candidate{key: o.Key, ts: ts})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ts.After(candidates[j].ts) })
	if *maxFiles > 0 && len(candidates) > *maxFiles {
		log.Printf("WARN: backfill: %d diff artifacts matched, capping at --max-files=%d (%d skipped)",
			len(candidates), *maxFiles, len(candidates)-*maxFiles)
		candidates = candidates[:*maxFiles]
	}

	idx, closeIdx := openIndex(*dryRun, *indexDB)
	defer closeIdx()
	loader := &indexloader.Loader{Index: idx}

	for i, c := range candidates {
		start := time.Now()

		data, err := fetchAndDecompress(ctx, store, *diffBucket, c.key)
		if err != nil {
			log.Fatalf("ERROR: backfill: %v", err)
		}
		art, err := artifact.ParseDiffArtifact(data)
		if err != nil {
			log.Fatalf("ERROR: backfill: parse %s: %v", c.key, err)
		}
		result, err := loader.Load(ctx, art, c.ts)
		if err != nil {
			log.Fatalf("ERROR: backfill: load %s: %v", c.key, err)
		}
		log.Printf("INFO: backfill %d/%d: %s indexed=%d failed=%d", i+1, len(candidates), c.key, result.Indexed, len(result.Failed))

		if *limitCPUPct > 0 && *limitCPUPct < 100 {
			// Duty-cycle throttle: after spending `elapsed` busy, sleep
			// enough idle time that busy time stays near the requested
			// percentage of the wall clock.
			elapsed := time.Since(start)
			idleFactor := float64(100-*limitCPUPct) / float64(*limitCPUPct)
			time.Sleep(time.Duration(float64(elapsed) * idleFactor))
		}
	}

	log.Printf("INFO: backfill complete: %d diff artifacts loaded", len(candidates))
}
