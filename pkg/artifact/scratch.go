package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeffsw/rpkilog/pkg/objectstore"
)

// ScratchFile manages the local-filesystem lifecycle of one artifact
// being written and uploaded: write to a local temp path, upload to the
// object store, then remove the local copy unless retention is
// requested. Dir/Keep are explicit configuration rather than a hidden
// default path, so callers control scratch placement per invocation.
type ScratchFile struct {
	Dir  string // local scratch directory
	Keep bool   // if true, do not remove the local copy after upload
}

// WriteAndUpload writes data to Dir/localName, uploads it to
// bucket/key via store, and removes the local file unless Keep is set.
// A failed upload leaves the scratch file behind for diagnosis.
func (sf *ScratchFile) WriteAndUpload(ctx context.Context, store objectstore.Store, bucket, key, localName string, data []byte) (path string, err error) {
	if sf.Dir == "" {
		sf.Dir = os.TempDir()
	}
	if err := os.MkdirAll(sf.Dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create scratch dir: %w", err)
	}

	path = filepath.Join(sf.Dir, localName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write scratch file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return path, fmt.Errorf("artifact: reopen scratch file: %w", err)
	}
	defer f.Close()

	if err := store.Put(ctx, bucket, key, f); err != nil {
		return path, fmt.Errorf("artifact: upload %s/%s: %w", bucket, key, err)
	}

	if !sf.Keep {
		if err := os.Remove(path); err != nil {
			return path, fmt.Errorf("artifact: remove scratch file after successful upload: %w", err)
		}
	}
	return path, nil
}
