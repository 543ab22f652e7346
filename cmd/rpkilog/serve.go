package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/jeffsw/rpkilog/pkg/queryapi"
	"github.com/jeffsw/rpkilog/pkg/searchindex/lvindex"
)

// serveCmd serves the read-side query API over the on-disk search
// index. It never writes to the index; only the index/backfill commands
// do.
func serveCmd() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)

	addr := fs.String("addr", "localhost:8080", "Listen address for the read-side query API")
	indexDB := fs.String("index-db", "./data/index", "Path to the LevelDB-backed search index")
	indexPattern := fs.String("index", "", "Restrict queries to one index name (default: search all known indices)")
	fs.Parse(os.Args[2:])

	idx, err := lvindex.Open(*indexDB)
	if err != nil {
		log.Fatalf("ERROR: open index %s: %v", *indexDB, err)
	}
	defer idx.Close()

	handler := &queryapi.Handler{Index: idx, IndexPattern: *indexPattern}

	log.Printf("INFO: serving read-side query API on %s (index-db=%s)", *addr, *indexDB)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalf("ERROR: serve: %v", err)
	}
}
