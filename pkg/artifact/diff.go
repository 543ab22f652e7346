package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/jeffsw/rpkilog/pkg/diffengine"
	"github.com/jeffsw/rpkilog/pkg/roa"
)

// CacheDescriptor names one of a diff's two input summaries.
type CacheDescriptor struct {
	Filename string          `json:"filename"`
	Metadata json.RawMessage `json:"metadata"`
}

// Times is the diff run's timing accounting block.
type Times struct {
	Realtime float64 `json:"realtime"`
	User     float64 `json:"user"`
	System   float64 `json:"system"`
}

// DiffMetadata is the diff artifact's metadata block.
type DiffMetadata struct {
	DiffCount   int              `json:"diff_count"`
	Timestamp   int64            `json:"timestamp"`
	Hostname    string           `json:"hostname"`
	User        string           `json:"user"`
	Times       Times            `json:"times"`
	VrpCacheOld *CacheDescriptor `json:"vrp_cache_old,omitempty"`
	VrpCacheNew *CacheDescriptor `json:"vrp_cache_new"`
}

// DiffArtifact is the self-describing, self-contained diff output of
// diffengine.Diff.
type DiffArtifact struct {
	ObjectType string              `json:"object_type"`
	Metadata   DiffMetadata        `json:"metadata"`
	VrpDiffs   []diffengine.VrpDiff `json:"-"`
}

const objectTypeDiffSet = "rpkilog_vrp_cache_diff_set"

// NewDiffArtifact assembles a diff artifact from the merge-diff output,
// filling in the run's host/user/timing accounting.
func NewDiffArtifact(records []diffengine.VrpDiff, counts diffengine.Counts, runTimestamp int64, oldDesc, newDesc *CacheDescriptor, times Times) *DiffArtifact {
	hostname, _ := os.Hostname()
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return &DiffArtifact{
		ObjectType: objectTypeDiffSet,
		Metadata: DiffMetadata{
			DiffCount:   len(records),
			Timestamp:   runTimestamp,
			Hostname:    hostname,
			User:        username,
			Times:       times,
			VrpCacheOld: oldDesc,
			VrpCacheNew: newDesc,
		},
		VrpDiffs: records,
	}
}

// MarshalJSON renders the artifact's wire format, with each vrp_diffs
// entry written in canonical roa field order for grep/diff
// friendliness.
func (a *DiffArtifact) MarshalJSON() ([]byte, error) {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("artifact: marshal diff metadata: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"object_type":`)
	b, _ := json.Marshal(a.ObjectType)
	buf.Write(b)
	buf.WriteString(`,"metadata":`)
	buf.Write(meta)
	buf.WriteString(`,"vrp_diffs":[`)
	for i, d := range a.VrpDiffs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"verb":"`)
		buf.WriteString(string(d.Verb))
		buf.WriteByte('"')
		if d.OldRoa != nil {
			buf.WriteString(`,"old_roa":`)
			buf.Write(d.OldRoa.CanonicalJSON())
		}
		if d.NewRoa != nil {
			buf.WriteString(`,"new_roa":`)
			buf.Write(d.NewRoa.CanonicalJSON())
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

// diffArtifactWire mirrors the on-disk shape for decoding.
type diffArtifactWire struct {
	ObjectType string          `json:"object_type"`
	Metadata   DiffMetadata    `json:"metadata"`
	VrpDiffs   []vrpDiffWire   `json:"vrp_diffs"`
}

type vrpDiffWire struct {
	Verb   string          `json:"verb"`
	OldRoa json.RawMessage `json:"old_roa,omitempty"`
	NewRoa json.RawMessage `json:"new_roa,omitempty"`
}

// ParseDiffArtifact decodes a diff artifact from its on-disk JSON form.
func ParseDiffArtifact(data []byte) (*DiffArtifact, error) {
	var wire diffArtifactWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("artifact: parse diff artifact: %w", err)
	}
	records := make([]diffengine.VrpDiff, 0, len(wire.VrpDiffs))
	for i, w := range wire.VrpDiffs {
		rec := diffengine.VrpDiff{Verb: diffengine.Verb(w.Verb)}
		if len(w.OldRoa) > 0 {
			r, err := roa.FromCanonicalJSON(w.OldRoa)
			if err != nil {
				return nil, fmt.Errorf("artifact: vrp_diffs[%d].old_roa: %w", i, err)
			}
			rec.OldRoa = r
		}
		if len(w.NewRoa) > 0 {
			r, err := roa.FromCanonicalJSON(w.NewRoa)
			if err != nil {
				return nil, fmt.Errorf("artifact: vrp_diffs[%d].new_roa: %w", i, err)
			}
			rec.NewRoa = r
		}
		records = append(records, rec)
	}
	return &DiffArtifact{ObjectType: wire.ObjectType, Metadata: wire.Metadata, VrpDiffs: records}, nil
}
