package roa

import (
	"bytes"
	"fmt"
)

// CanonicalJSON renders r with the stable key order required for on-disk
// artifacts: asn, expires, maxLength, prefix, ta. encoding/json does not
// preserve struct-tag declaration order across map-shaped values reliably
// enough for a wire format that downstream tooling greps/diffs by eye, so
// the object is hand-assembled field by field.
func (r *Roa) CanonicalJSON() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fmt.Fprintf(&buf, "%q:%d,", "asn", r.ASN)
	fmt.Fprintf(&buf, "%q:%d,", "expires", r.Expires)
	fmt.Fprintf(&buf, "%q:%d,", "maxLength", r.MaxLength)
	fmt.Fprintf(&buf, "%q:%q,", "prefix", r.Prefix.String())
	fmt.Fprintf(&buf, "%q:%q", "ta", r.TA)
	buf.WriteByte('}')
	return buf.Bytes()
}

// canonicalRecord mirrors CanonicalJSON's shape for decoding round-trips.
type canonicalRecord struct {
	ASN       uint32 `json:"asn"`
	Expires   int64  `json:"expires"`
	MaxLength int    `json:"maxLength"`
	Prefix    string `json:"prefix"`
	TA        string `json:"ta"`
}

// FromCanonicalJSON parses the output of CanonicalJSON back into a Roa.
// It is also accepted as a third upstream shape since it is a strict
// subset of the compact schema (asn always an integer here).
func FromCanonicalJSON(data []byte) (*Roa, error) {
	return ParseUpstream(data)
}
