// Package searchindex defines the opaque document-store interface the
// diff pipeline loads VrpDiff records into. Only this interface matters
// to the rest of the pipeline; a real deployment would satisfy it with a
// search engine offering create-index, bulk-insert, and query.
package searchindex

import "context"

type Error string

func (e Error) Error() string { return string(e) }

const ErrBatchFailed Error = "bulk batch failed after retries"

// FieldType enumerates the schema field types an index mapping can use.
type FieldType string

const (
	FieldDate    FieldType = "date"
	FieldKeyword FieldType = "keyword"
	FieldIPRange FieldType = "ip_range"
	FieldInteger FieldType = "integer"
	FieldLong    FieldType = "long"
	FieldObject  FieldType = "object"
)

// FieldSpec describes one field of an index schema.
type FieldSpec struct {
	Type   FieldType
	Format string // e.g. "strict_date_time_no_millis", only meaningful for FieldDate
}

// IndexSchema is the create-index request body: field mappings plus
// settings.
type IndexSchema struct {
	Fields           map[string]FieldSpec
	NumberOfReplicas int
	NumberOfShards   int
}

// Document is one record to index, keyed by a deterministic ID so that
// re-indexing the same logical record is idempotent.
type Document struct {
	ID     string
	Source map[string]any
}

// BulkResult reports per-document outcomes of a Bulk call.
type BulkResult struct {
	Indexed int
	Failed  []BulkFailure
}

// BulkFailure names a document that failed to index even after retries.
type BulkFailure struct {
	ID    string
	Error error
}

// Query is a minimal read-side query shape sufficient for the query API:
// range filter on observation_timestamp plus optional term filters.
type Query struct {
	Index             string
	PrefixCIDR        string
	ASN               *uint32
	TA                string
	ObservationAfter  string // RFC3339, inclusive
	ObservationBefore string // RFC3339, exclusive
	Limit             int
}

// Index is the contract the pipeline needs from a search index: ensure a
// time-partitioned index exists, bulk-load documents into it, and query
// it back.
type Index interface {
	// EnsureIndex creates the named index with the given schema if it does
	// not already exist. "Already exists" is not an error.
	EnsureIndex(ctx context.Context, name string, schema IndexSchema) error

	// Bulk submits docs for indexing into name, batching internally and
	// retrying transient failures per the configured backoff policy.
	Bulk(ctx context.Context, name string, docs []Document) (BulkResult, error)

	// Query runs a read-side query against one or more indices.
	Query(ctx context.Context, q Query) ([]Document, error)
}
