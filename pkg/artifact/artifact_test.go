package artifact

import (
	"bytes"
	"net/netip"
	"testing"
	"time"

	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/roa"
)

func mustRoa(t *testing.T, prefix string, maxLength int, asn uint32, ta string, expires int64) *roa.Roa {
	t.Helper()
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		t.Fatalf("parse prefix: %v", err)
	}
	r, err := roa.New(p, maxLength, asn, ta, expires)
	if err != nil {
		t.Fatalf("new roa: %v", err)
	}
	return r
}

func TestParseFilenameTimestampVariants(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"20260315T120000Z.json", "2026-03-15T12:00:00Z"},
		{"20260315T120000Z.json.bz2", "2026-03-15T12:00:00Z"},
		{"20260315T1200Z.json", "2026-03-15T12:00:00Z"},
		{"20260315T120000Z.vrpdiff.json.bz2", "2026-03-15T12:00:00Z"},
		{"rpki-20260315T120000Z.tgz", "2026-03-15T12:00:00Z"},
	}
	for _, c := range cases {
		got, err := ParseFilenameTimestamp(c.key)
		if err != nil {
			t.Errorf("ParseFilenameTimestamp(%q): unexpected error: %v", c.key, err)
			continue
		}
		if got.UTC().Format(time.RFC3339) != c.want {
			t.Errorf("ParseFilenameTimestamp(%q) = %v, want %s", c.key, got, c.want)
		}
	}
}

func TestParseFilenameTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseFilenameTimestamp("not-a-valid-key.txt"); err == nil {
		t.Fatal("expected error for non-matching key")
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	sum := &Summary{
		Metadata: []byte(`{"source":"test"}`),
		Roas: []*roa.Roa{
			mustRoa(t, "192.0.2.0/24", 24, 64496, "test", 100),
			mustRoa(t, "2001:db8::/32", 48, 65551, "test", 0),
		},
	}
	data, err := sum.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParseSummary(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Roas) != len(sum.Roas) {
		t.Fatalf("roas = %d, want %d", len(parsed.Roas), len(sum.Roas))
	}
}

func TestParseSummaryRejectsMissingMetadata(t *testing.T) {
	if _, err := ParseSummary([]byte(`{"roas":[]}`)); err == nil {
		t.Fatal("expected error for summary with no metadata block")
	}
}

func TestParseSummaryAbortsOnBadRoa(t *testing.T) {
	data := []byte(`{"metadata":{},"roas":[{"asn":1,"prefix":"192.0.2.0/24","maxLength":8,"ta":"t","expires":0}]}`)
	if _, err := ParseSummary(data); err == nil {
		t.Fatal("expected whole summary parse to abort on one malformed roa")
	}
}

func TestDiffArtifactRoundTrip(t *testing.T) {
	oldRoas := []*roa.Roa{mustRoa(t, "192.0.2.0/24", 24, 65001, "ARIN", 1000)}
	newRoas := []*roa.Roa{mustRoa(t, "192.0.2.0/24", 24, 65001, "ARIN", 2000)}
	records, counts := diffengine.Diff(oldRoas, newRoas)

	art := NewDiffArtifact(records, counts, 1700000000,
		&CacheDescriptor{Filename: "old.json", Metadata: []byte(`{}`)},
		&CacheDescriptor{Filename: "new.json", Metadata: []byte(`{}`)},
		Times{Realtime: 0.5})

	data, err := art.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := ParseDiffArtifact(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ObjectType != objectTypeDiffSet {
		t.Errorf("object_type = %q, want %q", parsed.ObjectType, objectTypeDiffSet)
	}
	if len(parsed.VrpDiffs) != 1 || parsed.VrpDiffs[0].Verb != diffengine.VerbReplace {
		t.Fatalf("unexpected vrp_diffs: %+v", parsed.VrpDiffs)
	}
	if parsed.Metadata.DiffCount != 1 {
		t.Errorf("diff_count = %d, want 1", parsed.Metadata.DiffCount)
	}
}

func TestBzip2RoundTrip(t *testing.T) {
	original := []byte(`{"hello":"world","roas":[1,2,3]}`)
	compressed, err := CompressBzip2(original)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(compressed) == 0 {
		t.Fatal("compressed output empty")
	}
	decompressed, err := DecompressBzip2(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decompressed) != string(original) {
		t.Errorf("round trip mismatch: got %q, want %q", decompressed, original)
	}
}

func TestSummaryAndDiffKeyNaming(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	if got, want := SummaryKey(ts, false), "20260315T120000Z.json"; got != want {
		t.Errorf("SummaryKey() = %q, want %q", got, want)
	}
	if got, want := SummaryKey(ts, true), "20260315T120000Z.json.bz2"; got != want {
		t.Errorf("SummaryKey(compressed) = %q, want %q", got, want)
	}
	if got, want := DiffKey(ts), "20260315T120000Z.vrpdiff.json.bz2"; got != want {
		t.Errorf("DiffKey() = %q, want %q", got, want)
	}
	if got, want := SnapshotKey(ts), "rpki-20260315T120000Z.tgz"; got != want {
		t.Errorf("SnapshotKey() = %q, want %q", got, want)
	}
}
