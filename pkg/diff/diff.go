// Package diff computes word-level edit scripts between an original text and
// its model-rewritten version, plus a character-level similarity score. Both
// are pure functions: no I/O, deterministic for a given input pair.
package diff

import (
	"strings"

	"github.com/aryann/difflib"
)

// Kind classifies a diff segment.
type Kind string

const (
	Unchanged Kind = "unchanged"
	Added     Kind = "added"
	Removed   Kind = "removed"
)

// Segment is one run of words sharing a single edit classification. The
// frontend uses these to highlight changes in red/green.
type Segment struct {
	Kind Kind   `json:"type"`
	Text string `json:"content"`
}

// Compute aligns the two texts word by word and returns the edit script.
// Words are whitespace-delimited; each segment's words are joined by single
// spaces. A replacement always yields a removed segment followed by an added
// segment, never interleaved token by token.
func Compute(original, enhanced string) []Segment {
	orig := strings.Fields(original)
	enh := strings.Fields(enhanced)
	if len(orig) == 0 && len(enh) == 0 {
		return nil
	}

	recs := difflib.Diff(orig, enh)

	var segs []Segment
	var equal, removed, added []string

	flushEdits := func() {
		if len(removed) > 0 {
			segs = append(segs, Segment{Kind: Removed, Text: strings.Join(removed, " ")})
			removed = removed[:0]
		}
		if len(added) > 0 {
			segs = append(segs, Segment{Kind: Added, Text: strings.Join(added, " ")})
			added = added[:0]
		}
	}
	flushEqual := func() {
		if len(equal) > 0 {
			segs = append(segs, Segment{Kind: Unchanged, Text: strings.Join(equal, " ")})
			equal = equal[:0]
		}
	}

	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			flushEdits()
			equal = append(equal, r.Payload)
		case difflib.LeftOnly:
			flushEqual()
			removed = append(removed, r.Payload)
		case difflib.RightOnly:
			flushEqual()
			added = append(added, r.Payload)
		}
	}
	flushEdits()
	flushEqual()

	return segs
}
