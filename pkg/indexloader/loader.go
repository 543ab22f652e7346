// Package indexloader implements the Index Loader (C5): streaming a
// Diff Artifact into a time-partitioned search index with deterministic
// document IDs.
package indexloader

import (
	"context"
	"fmt"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/searchindex"
)

// Schema is the index mapping/settings reused for every diff-YYYYMM
// index the loader creates.
var Schema = searchindex.IndexSchema{
	Fields: map[string]searchindex.FieldSpec{
		"observation_timestamp": {Type: searchindex.FieldDate, Format: "strict_date_time_no_millis"},
		"verb":                  {Type: searchindex.FieldKeyword},
		"prefix":                {Type: searchindex.FieldIPRange},
		"maxLength":              {Type: searchindex.FieldInteger},
		"asn":                   {Type: searchindex.FieldLong},
		"ta":                    {Type: searchindex.FieldKeyword},
		"old_expires":           {Type: searchindex.FieldDate, Format: "strict_date_time_no_millis"},
		"new_expires":           {Type: searchindex.FieldDate, Format: "strict_date_time_no_millis"},
		"old_roa":               {Type: searchindex.FieldObject},
		"new_roa":               {Type: searchindex.FieldObject},
	},
	NumberOfReplicas: 0,
	NumberOfShards:   3,
}

// Loader loads diff artifacts into a time-partitioned search index.
type Loader struct {
	Index searchindex.Index
}

// IndexName derives the diff-YYYYMM index name from a diff's embedded
// (new-summary) timestamp.
func IndexName(ts time.Time) string {
	return fmt.Sprintf("diff-%04d%02d", ts.Year(), ts.Month())
}

// DocumentID computes the deterministic document ID
// "<unix_seconds>+<prefix_cidr>+<maxLength>+<asn>+<ta>". Determinism is
// what makes re-running the loader over the same diff artifact
// idempotent.
func DocumentID(observedAt time.Time, prefix string, maxLength int, asn uint32, ta string) string {
	return fmt.Sprintf("%d+%s+%d+%d+%s", observedAt.Unix(), prefix, maxLength, asn, ta)
}

// Load ensures the target index exists and bulk-loads every VrpDiff
// record in art into it. observedAt is the new-summary timestamp
// embedded in the diff's key, kept distinct from the diff-run wall
// clock recorded in the artifact's own metadata.
func (l *Loader) Load(ctx context.Context, art *artifact.DiffArtifact, observedAt time.Time) (searchindex.BulkResult, error) {
	indexName := IndexName(observedAt)
	if err := l.Index.EnsureIndex(ctx, indexName, Schema); err != nil {
		return searchindex.BulkResult{}, fmt.Errorf("indexloader: ensure index %s: %w", indexName, err)
	}

	docs := make([]searchindex.Document, 0, len(art.VrpDiffs))
	for _, d := range art.VrpDiffs {
		doc, err := documentFor(observedAt, d)
		if err != nil {
			return searchindex.BulkResult{}, fmt.Errorf("indexloader: build document: %w", err)
		}
		docs = append(docs, doc)
	}

	result, err := l.Index.Bulk(ctx, indexName, docs)
	if err != nil {
		return result, fmt.Errorf("indexloader: bulk load %s: %w", indexName, err)
	}
	return result, nil
}

func documentFor(observedAt time.Time, d diffengine.VrpDiff) (searchindex.Document, error) {
	// prefix/maxLength/asn/ta are sourced from new_roa if present, else old_roa.
	primary := d.NewRoa
	if primary == nil {
		primary = d.OldRoa
	}
	if primary == nil {
		return searchindex.Document{}, fmt.Errorf("vrp diff record has neither old_roa nor new_roa")
	}

	source := map[string]any{
		"observation_timestamp": observedAt.UTC(),
		"verb":                  string(d.Verb),
		"prefix":                primary.Prefix.String(),
		"maxLength":             primary.MaxLength,
		"asn":                   primary.ASN,
		"ta":                    primary.TA,
	}
	if d.OldRoa != nil {
		source["old_expires"] = time.Unix(d.OldRoa.Expires, 0).UTC()
		source["old_roa"] = map[string]any{
			"prefix": d.OldRoa.Prefix.String(), "maxLength": d.OldRoa.MaxLength,
			"asn": d.OldRoa.ASN, "ta": d.OldRoa.TA, "expires": d.OldRoa.Expires,
		}
	}
	if d.NewRoa != nil {
		source["new_expires"] = time.Unix(d.NewRoa.Expires, 0).UTC()
		source["new_roa"] = map[string]any{
			"prefix": d.NewRoa.Prefix.String(), "maxLength": d.NewRoa.MaxLength,
			"asn": d.NewRoa.ASN, "ta": d.NewRoa.TA, "expires": d.NewRoa.Expires,
		}
	}

	id := DocumentID(observedAt, primary.Prefix.String(), primary.MaxLength, primary.ASN, primary.TA)
	return searchindex.Document{ID: id, Source: source}, nil
}
