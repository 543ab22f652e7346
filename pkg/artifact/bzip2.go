package artifact

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// CompressBzip2 bzip2-compresses data. The standard library's
// compress/bzip2 package is decompress-only, so writing is delegated to
// github.com/dsnet/compress/bzip2, the same library bgpfix-bgpipe uses
// for the same gap when writing compressed capture files.
func CompressBzip2(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return nil, fmt.Errorf("artifact: open bzip2 writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("artifact: bzip2 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("artifact: close bzip2 writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressBzip2 reads a bzip2-compressed stream to completion.
func DecompressBzip2(r io.Reader) ([]byte, error) {
	br, err := bzip2.NewReader(r, nil)
	if err != nil {
		return nil, fmt.Errorf("artifact: open bzip2 reader: %w", err)
	}
	defer br.Close()
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("artifact: bzip2 decompress: %w", err)
	}
	return data, nil
}
