// Package queryapi is a thin HTTP adapter translating prefix/ASN/TA/time
// query parameters into a searchindex.Query and streaming the matching
// VRP diff documents back as JSON. It holds no domain logic of its own;
// every filter it accepts maps directly onto a searchindex.Query field.
package queryapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/jeffsw/rpkilog/pkg/searchindex"
)

// Handler serves the history-lookup endpoint over a searchindex.Index.
type Handler struct {
	Index searchindex.Index
	// IndexPattern names the single index to query; the name is matched
	// exactly, wildcard patterns are not expanded. Left blank, all
	// indices the Index implementation knows about are searched.
	IndexPattern string
}

// ServeHTTP implements the single GET endpoint this package exposes:
//
//	GET /history?prefix=192.0.2.0/24&asn=65001&ta=ARIN&observation_after=...&observation_before=...&limit=...
//
// Grounded on the original source's get_history_for_prefix query shape
// (prefix is the only required parameter; the rest narrow it further).
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := parseQuery(req, h.IndexPattern)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	docs, err := h.Index.Query(req.Context(), q)
	if err != nil {
		log.Printf("ERROR: queryapi: index query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(docs); err != nil {
		log.Printf("ERROR: queryapi: encode response: %v", err)
	}
}

func parseQuery(req *http.Request, indexPattern string) (searchindex.Query, error) {
	v := req.URL.Query()

	q := searchindex.Query{
		Index:             indexPattern,
		PrefixCIDR:        v.Get("prefix"),
		TA:                v.Get("ta"),
		ObservationAfter:  v.Get("observation_after"),
		ObservationBefore: v.Get("observation_before"),
	}
	if q.PrefixCIDR == "" {
		return searchindex.Query{}, fmt.Errorf("queryapi: prefix is required")
	}

	if asnStr := v.Get("asn"); asnStr != "" {
		asn, err := strconv.ParseUint(asnStr, 10, 32)
		if err != nil {
			return searchindex.Query{}, fmt.Errorf("queryapi: invalid asn: %w", err)
		}
		asn32 := uint32(asn)
		q.ASN = &asn32
	}

	if limitStr := v.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return searchindex.Query{}, fmt.Errorf("queryapi: invalid limit")
		}
		q.Limit = limit
	}

	return q, nil
}
