// Command rpkilog runs the VRP diff pipeline: summarizing raw RPKI
// validator output, diffing consecutive summaries, and loading the
// results into a search index.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "summary":
		summaryCmd()
	case "diff":
		diffCmd()
	case "lineage":
		lineageCmd()
	case "index":
		indexCmd()
	case "backfill":
		backfillCmd()
	case "serve":
		serveCmd()
	case "version":
		fmt.Printf("rpkilog version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rpkilog - RPKI VRP diff pipeline

Usage:
  rpkilog summary [options]     Build a Summary artifact from a raw snapshot
  rpkilog diff [options]        Diff two summaries directly
  rpkilog lineage [options]     Resolve a summary's predecessor and run the diff
  rpkilog index [options]       Load one diff artifact into the search index
  rpkilog backfill [options]    Re-index every diff artifact already in a bucket
  rpkilog serve [options]       Serve the read-side query API
  rpkilog version               Show version
  rpkilog help                  Show this help

Examples:
  rpkilog summary --scratch=/tmp/rpkilog --snapshot-bucket=./data/snapshots \
    --summary-bucket=./data/summaries --tar=rpki-20260315T120000Z.tgz

  rpkilog lineage --scratch=/tmp/rpkilog --summary-bucket=./data/summaries \
    --diff-bucket=./data/diffs --new=20260315T120000Z.json

  rpkilog serve --addr=localhost:8080 --index-db=./data/index`)
}
