package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestExtractRpkiClientJSON(t *testing.T) {
	payload := `{"metadata":{},"roas":[]}`
	archive := buildTarGz(t, map[string]string{
		"rpki-20260315T120000Z/README":              "ignore me",
		"rpki-20260315T120000Z/output/rpki-client.json": payload,
	})

	data, ts, err := ExtractRpkiClientJSON(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != payload {
		t.Errorf("data = %q, want %q", data, payload)
	}
	if ts != "20260315T120000Z" {
		t.Errorf("timestamp token = %q, want %q", ts, "20260315T120000Z")
	}
}

func TestExtractRpkiClientJSONMissingMember(t *testing.T) {
	archive := buildTarGz(t, map[string]string{"rpki-20260315T120000Z/README": "nothing here"})
	if _, _, err := ExtractRpkiClientJSON(bytes.NewReader(archive)); err != ErrMemberNotFound {
		t.Fatalf("err = %v, want %v", err, ErrMemberNotFound)
	}
}
