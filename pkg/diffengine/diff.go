// Package diffengine implements the deterministic merge-diff between two
// canonical Roa sets.
package diffengine

import (
	"fmt"
	"log"
	"sort"

	"github.com/jeffsw/rpkilog/pkg/roa"
)

type Error string

func (e Error) Error() string { return string(e) }

// ErrStuck is raised if a merge iteration fails to advance either cursor,
// which would otherwise spin forever over large inputs. This is a
// programmer-error guard, not something well-formed input can trigger.
const ErrStuck Error = "diff engine stuck: no progress made consuming input ROAs"

// Verb classifies a single change between two summaries.
type Verb string

const (
	VerbNew     Verb = "NEW"
	VerbDelete  Verb = "DELETE"
	VerbReplace Verb = "REPLACE"
)

// VrpDiff is one change record. UNCHANGED pairs are never materialized.
type VrpDiff struct {
	Verb   Verb
	OldRoa *roa.Roa
	NewRoa *roa.Roa
}

// Counts accumulates the diff accounting invariant:
// |old|+|new| == 2*unchanged + 2*replace + delete + new.
type Counts struct {
	Old       int
	New       int
	Unchanged int
	Replace   int
	Delete    int
	NewCount  int
}

// Diff runs the merge-diff algorithm over two unsorted (or sorted) Roa
// slices. Both slices are sorted in place by SortKey before the merge, as
// the contract does not assume sorted upstream input.
func Diff(oldRoas, newRoas []*roa.Roa) ([]VrpDiff, Counts) {
	sort.Slice(oldRoas, func(i, j int) bool { return oldRoas[i].SortKey().Less(oldRoas[j].SortKey()) })
	sort.Slice(newRoas, func(i, j int) bool { return newRoas[i].SortKey().Less(newRoas[j].SortKey()) })

	// Duplicate primary keys differ only in Expires, so after sorting they
	// are adjacent. They are flagged here and then processed in sort order.
	for side, roas := range map[string][]*roa.Roa{"old": oldRoas, "new": newRoas} {
		for i := 1; i < len(roas); i++ {
			if roas[i].PrimaryKey() == roas[i-1].PrimaryKey() {
				log.Printf("WARN: diff input %s has duplicate primary key %+v", side, roas[i].PrimaryKey())
			}
		}
	}

	counts := Counts{Old: len(oldRoas), New: len(newRoas)}
	var records []VrpDiff

	oi, ni := 0, 0
	for oi < len(oldRoas) || ni < len(newRoas) {
		before := oi + ni

		var o, n *roa.Roa
		if oi < len(oldRoas) {
			o = oldRoas[oi]
		}
		if ni < len(newRoas) {
			n = newRoas[ni]
		}

		switch {
		case o != nil && n != nil && o.PrimaryKey() == n.PrimaryKey():
			if roa.Equal(o, n) {
				counts.Unchanged++
			} else {
				records = append(records, VrpDiff{Verb: VerbReplace, OldRoa: o, NewRoa: n})
				counts.Replace++
			}
			oi++
			ni++

		case n == nil || (o != nil && o.SortKey().Less(n.SortKey())):
			records = append(records, VrpDiff{Verb: VerbDelete, OldRoa: o})
			counts.Delete++
			oi++

		default:
			records = append(records, VrpDiff{Verb: VerbNew, NewRoa: n})
			counts.NewCount++
			ni++
		}

		if oi+ni == before {
			panic(fmt.Errorf("%w: oi=%d ni=%d", ErrStuck, oi, ni))
		}
	}

	if counts.Old+counts.New != 2*counts.Unchanged+2*counts.Replace+counts.Delete+counts.NewCount {
		log.Printf("WARN: diff accounting mismatch: old=%d new=%d unchanged=%d replace=%d delete=%d new_verb=%d",
			counts.Old, counts.New, counts.Unchanged, counts.Replace, counts.Delete, counts.NewCount)
	}

	return records, counts
}
