package queryapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeffsw/rpkilog/pkg/searchindex"
	"github.com/jeffsw/rpkilog/pkg/searchindex/memindex"
)

func seedIndex(t *testing.T) *memindex.Index {
	t.Helper()
	idx := memindex.New()
	ctx := context.Background()
	if err := idx.EnsureIndex(ctx, "diff-202603", searchindex.IndexSchema{}); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	_, err := idx.Bulk(ctx, "diff-202603", []searchindex.Document{
		{ID: "1", Source: map[string]any{
			"prefix": "192.0.2.0/24", "asn": uint32(65001), "ta": "ARIN",
			"observation_timestamp": time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		}},
		{ID: "2", Source: map[string]any{
			"prefix": "198.51.100.0/24", "asn": uint32(65002), "ta": "RIPE",
			"observation_timestamp": time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		}},
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	return idx
}

func TestHandlerFiltersByPrefix(t *testing.T) {
	h := &Handler{Index: seedIndex(t)}
	req := httptest.NewRequest(http.MethodGet, "/history?prefix=192.0.2.0/24", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var docs []searchindex.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "1" {
		t.Fatalf("docs = %+v, want exactly document 1", docs)
	}
}

func TestHandlerRequiresPrefix(t *testing.T) {
	h := &Handler{Index: seedIndex(t)}
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerRejectsInvalidASN(t *testing.T) {
	h := &Handler{Index: seedIndex(t)}
	req := httptest.NewRequest(http.MethodGet, "/history?prefix=192.0.2.0/24&asn=notanumber", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerRejectsNonGet(t *testing.T) {
	h := &Handler{Index: seedIndex(t)}
	req := httptest.NewRequest(http.MethodPost, "/history?prefix=192.0.2.0/24", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
