// Package roa defines the canonical value type for a single Validated ROA
// Payload (VRP) and the ordering/equality rules used throughout the diff
// pipeline.
package roa

import (
	"fmt"
	"net/netip"
)

// Error is a typed sentinel error, following the same pattern used
// throughout this codebase for package-local failure modes.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidAsn         Error = "invalid asn"
	ErrInvalidMaxLength   Error = "invalid maxLength"
	ErrInvalidPrefix      Error = "invalid prefix"
	ErrMissingRequired    Error = "missing required field"
	ErrUnrecognizedSchema Error = "unrecognized upstream schema"
)

// Roa is an authorization that prefix may be originated by asn, up to
// maxLength, under trust anchor ta, expiring at Expires.
type Roa struct {
	Prefix     netip.Prefix
	MaxLength  int
	ASN        uint32
	TA         string
	Expires    int64
	SourceHost string
	SourceTime int64
}

// New validates and constructs a Roa from already-typed fields.
func New(prefix netip.Prefix, maxLength int, asn uint32, ta string, expires int64) (*Roa, error) {
	if !prefix.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrefix, prefix)
	}
	if ta == "" {
		return nil, fmt.Errorf("%w: ta", ErrMissingRequired)
	}
	addrWidth := 32
	if prefix.Addr().Is6() {
		addrWidth = 128
	}
	if maxLength < prefix.Bits() || maxLength > addrWidth {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidMaxLength, maxLength, prefix.Bits(), addrWidth)
	}
	if expires < 0 {
		return nil, fmt.Errorf("%w: expires %d", ErrMissingRequired, expires)
	}
	return &Roa{
		Prefix:    prefix.Masked(),
		MaxLength: maxLength,
		ASN:       asn,
		TA:        ta,
		Expires:   expires,
	}, nil
}

// PrimaryKey identifies a VRP across time, independent of Expires.
type PrimaryKey struct {
	Prefix    string
	MaxLength int
	ASN       uint32
	TA        string
}

func (r *Roa) PrimaryKey() PrimaryKey {
	return PrimaryKey{
		Prefix:    r.Prefix.String(),
		MaxLength: r.MaxLength,
		ASN:       r.ASN,
		TA:        r.TA,
	}
}

// SortKey is the total-order tuple used for diffing and canonical output:
// prefix family, then network address, then prefix length, then
// maxLength/asn/ta/expires.
type SortKey struct {
	Family    int // 4 or 6, v4 sorts before v6
	AddrHi    uint64
	AddrLo    uint64
	Bits      int
	MaxLength int
	ASN       uint32
	TA        string
	Expires   int64
}

func (r *Roa) SortKey() SortKey {
	hi, lo := addrWords(r.Prefix.Addr())
	family := 4
	if r.Prefix.Addr().Is6() {
		family = 6
	}
	return SortKey{
		Family:    family,
		AddrHi:    hi,
		AddrLo:    lo,
		Bits:      r.Prefix.Bits(),
		MaxLength: r.MaxLength,
		ASN:       r.ASN,
		TA:        r.TA,
		Expires:   r.Expires,
	}
}

// Less implements the diff ordering: lexicographic over sort_key,
// IPv4 before IPv6.
func (k SortKey) Less(o SortKey) bool {
	if k.Family != o.Family {
		return k.Family < o.Family
	}
	if k.AddrHi != o.AddrHi {
		return k.AddrHi < o.AddrHi
	}
	if k.AddrLo != o.AddrLo {
		return k.AddrLo < o.AddrLo
	}
	if k.Bits != o.Bits {
		return k.Bits < o.Bits
	}
	if k.MaxLength != o.MaxLength {
		return k.MaxLength < o.MaxLength
	}
	if k.ASN != o.ASN {
		return k.ASN < o.ASN
	}
	if k.TA != o.TA {
		return k.TA < o.TA
	}
	return k.Expires < o.Expires
}

func (k SortKey) Equal(o SortKey) bool { return k == o }

// Equal reports whether two Roas are identical under the full sortable
// tuple (i.e. including Expires).
func Equal(a, b *Roa) bool { return a.SortKey().Equal(b.SortKey()) }

// addrWords splits a netip.Addr into two uint64 words (hi, lo) suitable for
// numeric comparison; IPv4 addresses occupy only the low word.
func addrWords(addr netip.Addr) (hi, lo uint64) {
	b := addr.As16()
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(b[i])
	}
	return hi, lo
}
