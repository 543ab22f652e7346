// Package summary implements the Summary Builder (C2): reducing a raw
// snapshot — either a gzipped TAR archive or a raw validator JSON
// document — to a canonical Summary artifact.
package summary

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/objectstore"
	"github.com/jeffsw/rpkilog/pkg/snapshot"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrNoTimestamp Error = "summary: could not determine snapshot timestamp"

// Builder turns raw snapshots into Summary artifacts and uploads them.
type Builder struct {
	Store         objectstore.Store
	SummaryBucket string
	Scratch       artifact.ScratchFile
	// Compress, if true, bzip2-compresses the uploaded summary
	// (key suffix .json.bz2 instead of .json).
	Compress bool
}

// BuildResult describes one successful build.
type BuildResult struct {
	Timestamp time.Time
	Key       string
	RoaCount  int
	Uploaded  bool // false if the key already existed (idempotent no-op)
}

// BuildFromTar ingests a gzipped TAR snapshot, extracting its embedded
// rpki-client.json member. The Summary's timestamp is the token embedded
// in the TAR member path, not wall-clock time.
func (b *Builder) BuildFromTar(ctx context.Context, r io.Reader) (*BuildResult, error) {
	data, tsToken, err := snapshot.ExtractRpkiClientJSON(r)
	if err != nil {
		return nil, fmt.Errorf("summary: extract from tar: %w", err)
	}
	ts, err := time.Parse(artifact.TimestampFormat, tsToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTimestamp, err)
	}
	return b.buildFromJSON(ctx, data, ts)
}

// BuildFromValidatorJSON ingests a raw validator JSON document (either
// upstream schema variant). The caller supplies the snapshot timestamp,
// since a standalone JSON document carries no embedded filename.
func (b *Builder) BuildFromValidatorJSON(ctx context.Context, data []byte, ts time.Time) (*BuildResult, error) {
	return b.buildFromJSON(ctx, data, ts)
}

func (b *Builder) buildFromJSON(ctx context.Context, data []byte, ts time.Time) (*BuildResult, error) {
	sum, err := artifact.ParseSummary(data)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	key := artifact.SummaryKey(ts, b.Compress)

	exists, err := b.Store.Exists(ctx, b.SummaryBucket, key)
	if err != nil {
		return nil, fmt.Errorf("summary: check existing key: %w", err)
	}
	if exists {
		return &BuildResult{Timestamp: ts, Key: key, RoaCount: len(sum.Roas), Uploaded: false}, nil
	}

	out, err := sum.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("summary: marshal: %w", err)
	}
	if b.Compress {
		out, err = artifact.CompressBzip2(out)
		if err != nil {
			return nil, fmt.Errorf("summary: compress: %w", err)
		}
	}

	if _, err := b.Scratch.WriteAndUpload(ctx, b.Store, b.SummaryBucket, key, key, out); err != nil {
		return nil, fmt.Errorf("summary: upload: %w", err)
	}

	return &BuildResult{Timestamp: ts, Key: key, RoaCount: len(sum.Roas), Uploaded: true}, nil
}
