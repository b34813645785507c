// Package resolver merges candidate spans from all recognizers into a
// non-overlapping, ranked set.
package resolver

import (
	"sort"

	"github.com/veil-sh/veil/internal/recognizer"
)

// Resolve selects a pairwise non-overlapping subset of candidates covering
// the highest-value interpretation of the document.
//
// Candidates are ranked by (priority desc, score desc, length desc, start
// asc); remaining ties keep the original candidate order, so the selection
// is deterministic across runs for identical input. Ranked candidates are
// accepted greedily: a span is kept iff it overlaps no already-accepted
// span. Adjacent spans (end == next start) do not overlap.
//
// The result is returned in ascending start order.
func Resolve(candidates []recognizer.Candidate) []recognizer.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]recognizer.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Len() != ranked[j].Len() {
			return ranked[i].Len() > ranked[j].Len()
		}
		return ranked[i].Start < ranked[j].Start
	})

	var accepted []recognizer.Candidate
	for _, cand := range ranked {
		if overlapsAny(accepted, cand) {
			continue
		}
		accepted = append(accepted, cand)
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

func overlapsAny(accepted []recognizer.Candidate, cand recognizer.Candidate) bool {
	for _, a := range accepted {
		if a.Overlaps(cand.Span) {
			return true
		}
	}
	return false
}
