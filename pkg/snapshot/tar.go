// Package snapshot extracts the rpki-client JSON payload from a gzipped
// TAR snapshot archive, feeding it to the Summary Builder. It streams
// the archive member-by-member rather than buffering the whole file,
// the same streaming-decoder shape used elsewhere in this repository
// for large upstream payloads.
package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrMemberNotFound Error = "snapshot: no rpki-client.json member found in archive"

// memberGrammar matches the TAR member path carrying the validator's
// canonical JSON output: rpki-YYYYMMDDTHHMMSSZ/output/rpki-client.json
var memberGrammar = regexp.MustCompile(`^rpki-(\d{8}T\d{6}Z)/output/rpki-client\.json$`)

// ExtractRpkiClientJSON streams r (a gzipped TAR) looking for the member
// matching memberGrammar, returning its raw bytes and the timestamp
// token embedded in the member's path. The whole archive need not be
// buffered: tar.Reader is consumed sequentially and extraction stops as
// soon as the matching member is found.
func ExtractRpkiClientJSON(r io.Reader) (data []byte, timestampToken string, err error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("snapshot: open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, "", ErrMemberNotFound
		}
		if err != nil {
			return nil, "", fmt.Errorf("snapshot: read tar header: %w", err)
		}

		m := memberGrammar.FindStringSubmatch(hdr.Name)
		if m == nil {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, "", fmt.Errorf("snapshot: read member %q: %w", hdr.Name, err)
		}
		return data, m[1], nil
	}
}
