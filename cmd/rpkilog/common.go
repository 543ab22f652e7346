package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeffsw/rpkilog/pkg/artifact"
	"github.com/jeffsw/rpkilog/pkg/objectstore"
)

// fetchAndDecompress reads bucket/key from store, transparently
// bzip2-decompressing it if the key carries the .bz2 suffix. Summary and
// diff keys are both allowed to appear compressed or uncompressed.
func fetchAndDecompress(ctx context.Context, store objectstore.Store, bucket, key string) ([]byte, error) {
	rc, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	if strings.HasSuffix(key, ".bz2") {
		data, err = artifact.DecompressBzip2(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress %s/%s: %w", bucket, key, err)
		}
	}
	return data, nil
}

// fetchSummary fetches and parses a Summary artifact from the object
// store, decompressing it first if the key is bzip2-compressed.
func fetchSummary(ctx context.Context, store objectstore.Store, bucket, key string) (*artifact.Summary, error) {
	data, err := fetchAndDecompress(ctx, store, bucket, key)
	if err != nil {
		return nil, err
	}
	sum, err := artifact.ParseSummary(data)
	if err != nil {
		return nil, fmt.Errorf("parse summary %s/%s: %w", bucket, key, err)
	}
	return sum, nil
}
