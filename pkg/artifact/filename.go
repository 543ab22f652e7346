package artifact

import (
	"fmt"
	"regexp"
	"time"
)

// TimestampFormat is the compact UTC form used throughout the pipeline's
// on-disk and object-store key names: YYYYMMDDTHHMMSSZ.
const TimestampFormat = "20060102T150405Z"

// filenameGrammar matches the filename timestamp grammar:
// ^(?:rpki-)?(?P<ts>\d{8}T\d{4,6}Z)\.(json|vrpdiff\.json|tgz)(\.bz2)?$
var filenameGrammar = regexp.MustCompile(`^(?:rpki-)?(\d{8}T\d{4,6}Z)\.(json|vrpdiff\.json|tgz)(\.bz2)?$`)

// ParseFilenameTimestamp extracts and parses the embedded UTC timestamp
// from an object key, following the filename timestamp grammar. It
// accepts the shortened HHMM and HHMMSS forms of the time-of-day token.
func ParseFilenameTimestamp(key string) (time.Time, error) {
	m := filenameGrammar.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, fmt.Errorf("artifact: key %q does not match filename timestamp grammar", key)
	}
	ts := m[1]
	// Normalize HHMM to HHMMSS so a single layout can parse both.
	if len(ts) == len("20060102T1504Z") {
		ts = ts[:len(ts)-1] + "00Z"
	}
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("artifact: invalid timestamp in key %q: %w", key, err)
	}
	return t, nil
}

// FormatTimestamp renders t in the compact UTC form used for artifact keys.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// SummaryKey returns the object-store key for a summary with the given
// timestamp, optionally bzip2-compressed.
func SummaryKey(ts time.Time, compressed bool) string {
	if compressed {
		return FormatTimestamp(ts) + ".json.bz2"
	}
	return FormatTimestamp(ts) + ".json"
}

// DiffKey returns the object-store key for a diff artifact with the given
// (new-summary) timestamp. Diffs are always bzip2-compressed on upload.
func DiffKey(ts time.Time) string {
	return FormatTimestamp(ts) + ".vrpdiff.json.bz2"
}

// SnapshotKey returns the object-store key for a raw validator snapshot
// TAR with the given timestamp.
func SnapshotKey(ts time.Time) string {
	return "rpki-" + FormatTimestamp(ts) + ".tgz"
}
