// Package localfs implements objectstore.Store on top of the local
// filesystem, for tests, development, and single-host deployments. A real
// deployment would instead point the pipeline at an S3-compatible store
// satisfying the same interface.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jeffsw/rpkilog/pkg/objectstore"
)

// Store persists each bucket as a subdirectory and each key as a file
// within it. A companion LevelDB index tracks key metadata so that List
// does not require a directory walk on every call, the same role
// LevelDB plays as iporgdb's backing engine for range queries.
type Store struct {
	baseDir string
	mu      sync.RWMutex
	index   *leveldb.DB
}

// indexEntry is the msgpack-encoded value stored per bucket/key in the
// listing index: a small hand-rolled struct rather than the domain Roa
// type, since the index only needs to answer existence/listing queries.
type indexEntry struct {
	Size         int64
	LastModified int64 // unix seconds
}

// Open creates (or reopens) a filesystem-backed store rooted at baseDir.
// The listing index lives at baseDir/.index.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create base dir: %w", err)
	}
	idx, err := leveldb.OpenFile(filepath.Join(baseDir, ".index"), &opt.Options{
		Compression: opt.SnappyCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("localfs: open index: %w", err)
	}
	return &Store{baseDir: baseDir, index: idx}, nil
}

// Close releases the listing index's file handles.
func (s *Store) Close() error {
	return s.index.Close()
}

func (s *Store) indexKey(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

func (s *Store) objectPath(bucket, key string) string {
	return filepath.Join(s.baseDir, bucket, key)
}

func (s *Store) Put(ctx context.Context, bucket, key string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("localfs: mkdir: %w", err)
	}

	path := s.objectPath(bucket, key)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("localfs: create temp file: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("localfs: write object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("localfs: rename object into place: %w", err)
	}

	entry := indexEntry{Size: written, LastModified: time.Now().Unix()}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("localfs: encode index entry: %w", err)
	}
	if err := s.index.Put(s.indexKey(bucket, key), data, nil); err != nil {
		return fmt.Errorf("localfs: update index: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.objectPath(bucket, key))
	if os.IsNotExist(err) {
		return nil, objectstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localfs: open object: %w", err)
	}
	return f, nil
}

func (s *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.index.Get(s.indexKey(bucket, key), nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("localfs: index lookup: %w", err)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, bucket, prefix string) ([]objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rangePrefix := []byte(bucket + "/" + prefix)
	iter := s.index.NewIterator(util.BytesPrefix(rangePrefix), nil)
	defer iter.Release()

	var out []objectstore.ObjectInfo
	for iter.Next() {
		var entry indexEntry
		if err := msgpack.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("localfs: decode index entry: %w", err)
		}
		key := string(iter.Key())[len(bucket)+1:]
		out = append(out, objectstore.ObjectInfo{
			Key:          key,
			Size:         entry.Size,
			LastModified: time.Unix(entry.LastModified, 0).UTC(),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("localfs: list iterator: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.objectPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("localfs: remove object: %w", err)
	}
	if err := s.index.Delete(s.indexKey(bucket, key), nil); err != nil {
		return fmt.Errorf("localfs: remove index entry: %w", err)
	}
	return nil
}
