package roa

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// compactRecord is the "compact" upstream schema:
// {asn, prefix, maxLength, ta, expires} with asn as int or "AS<digits>".
type compactRecord struct {
	ASN       json.RawMessage `json:"asn"`
	Prefix    string          `json:"prefix"`
	MaxLength int             `json:"maxLength"`
	TA        string          `json:"ta"`
	Expires   int64           `json:"expires"`
}

// extendedSource is one entry of the "extended"/Routinator jsonext
// schema's source array.
type extendedSource struct {
	TAL   string `json:"tal"`
	Stale string `json:"stale"`
}

type extendedRecord struct {
	ASN       json.RawMessage  `json:"asn"`
	Prefix    string           `json:"prefix"`
	MaxLength int              `json:"maxLength"`
	Source    []extendedSource `json:"source"`
}

// ParseUpstream accepts one raw upstream record and parses it under
// whichever of the two known schema variants it matches: compact
// ({asn,prefix,maxLength,ta,expires}) or extended
// ({asn,prefix,maxLength,source:[{tal,stale,...}]}).
func ParseUpstream(raw json.RawMessage) (*Roa, error) {
	var probe struct {
		TA     string          `json:"ta"`
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedSchema, err)
	}

	switch {
	case len(probe.Source) > 0:
		var rec extendedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedSchema, err)
		}
		return parseExtended(rec)
	case probe.TA != "":
		var rec compactRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedSchema, err)
		}
		return parseCompact(rec)
	default:
		return nil, fmt.Errorf("%w: no ta or source field present", ErrUnrecognizedSchema)
	}
}

func parseCompact(rec compactRecord) (*Roa, error) {
	asn, err := parseASN(rec.ASN)
	if err != nil {
		return nil, err
	}
	prefix, err := netip.ParsePrefix(rec.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrefix, err)
	}
	if rec.TA == "" {
		return nil, fmt.Errorf("%w: ta", ErrMissingRequired)
	}
	if rec.Expires < 0 {
		return nil, fmt.Errorf("%w: expires %d", ErrMissingRequired, rec.Expires)
	}
	return New(prefix, rec.MaxLength, asn, rec.TA, rec.Expires)
}

// parseExtended selects source[0]: the first entry of a potentially
// multi-entry source array wins. Which tal to prefer when source carries
// more than one entry is undocumented upstream; this picks the first.
func parseExtended(rec extendedRecord) (*Roa, error) {
	if len(rec.Source) == 0 {
		return nil, fmt.Errorf("%w: empty source array", ErrMissingRequired)
	}
	asn, err := parseASN(rec.ASN)
	if err != nil {
		return nil, err
	}
	prefix, err := netip.ParsePrefix(rec.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrefix, err)
	}
	src := rec.Source[0]
	if src.TAL == "" {
		return nil, fmt.Errorf("%w: source[0].tal", ErrMissingRequired)
	}
	stale, err := time.Parse(time.RFC3339, src.Stale)
	if err != nil {
		return nil, fmt.Errorf("%w: source[0].stale %q: %v", ErrMissingRequired, src.Stale, err)
	}
	expires := int64(math.Floor(float64(stale.Unix())))
	return New(prefix, rec.MaxLength, asn, src.TAL, expires)
}

// parseASN accepts either a JSON integer or a JSON string of the form
// "AS<digits>" (case-insensitive "as" prefix).
func parseASN(raw json.RawMessage) (uint32, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: asn", ErrMissingRequired)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAsn, err)
		}
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "as")
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAsn, string(raw))
		}
		return uint32(n), nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAsn, err)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidAsn, n)
	}
	return uint32(n), nil
}
