package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jeffsw/rpkilog/pkg/roa"
)

// Summary is the canonical projection of one upstream snapshot: the
// verbatim upstream metadata block plus the canonical Roa set.
type Summary struct {
	Metadata json.RawMessage
	Roas     []*roa.Roa
}

// summaryWire is the on-disk Summary shape used for decoding. Each roas
// entry is kept raw and handed to roa.ParseUpstream, which accepts either
// upstream schema variant by dispatching on field presence.
type summaryWire struct {
	Metadata json.RawMessage   `json:"metadata"`
	Roas     []json.RawMessage `json:"roas"`
}

// ParseSummary decodes a Summary artifact from its on-disk/on-wire JSON
// form. Any malformed roa aborts the whole parse: no partial summary is
// ever produced.
func ParseSummary(data []byte) (*Summary, error) {
	var wire summaryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("artifact: parse summary: %w", err)
	}
	if wire.Metadata == nil {
		return nil, fmt.Errorf("artifact: summary missing metadata block")
	}

	roas := make([]*roa.Roa, 0, len(wire.Roas))
	for i, raw := range wire.Roas {
		r, err := roa.ParseUpstream(raw)
		if err != nil {
			return nil, fmt.Errorf("artifact: summary roas[%d]: %w", i, err)
		}
		roas = append(roas, r)
	}
	return &Summary{Metadata: wire.Metadata, Roas: roas}, nil
}

// MarshalJSON renders the Summary in the on-disk wire format:
// {"metadata": {...}, "roas": [canonical roa objects...]}.
func (s *Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"metadata":`)
	if s.Metadata != nil {
		buf.Write(s.Metadata)
	} else {
		buf.WriteString("{}")
	}
	buf.WriteString(`,"roas":[`)
	for i, r := range s.Roas {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r.CanonicalJSON())
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}
