// Package cluster consolidates accepted spans that denote the same entity,
// so near-duplicate mentions share one placeholder identity.
package cluster

import (
	"strings"

	"github.com/veil-sh/veil/internal/recognizer"
)

// shortTokenLen is the length at or below which tokens must match exactly
// in fuzzy mode. Initials and particles are too short for edit distance to
// be meaningful.
const shortTokenLen = 2

// Cluster is one consolidated entity within a document.
type Cluster struct {
	Label         string   `json:"label"`
	CanonicalText string   `json:"canonical_text"`
	Members       []string `json:"members"`
}

// Assignment maps each input span to its cluster.
type Assignment struct {
	// EntityIDs holds, per input span in input order, an index into Clusters.
	EntityIDs []int
	// Clusters is ordered by first appearance of each entity in the document.
	Clusters []Cluster
}

// Consolidate assigns an entity identity to every accepted span.
//
// In exact mode (strength == 0) two spans share an identity iff they carry
// the same label and their normalized (trimmed, case- and whitespace-folded)
// texts are equal.
//
// In fuzzy mode (strength >= 1) spans of the same label additionally merge
// when their normalized forms are token-subsequences of one another, or have
// the same token count with a total Levenshtein budget of strength+1 across
// differing token pairs (short tokens must match exactly). Merging is
// transitive via union-find; candidate pairs are evaluated in document
// order, so the clustering is deterministic for identical input order.
//
// A cluster's canonical text is the first-seen member's original text, and
// clusters are numbered by first appearance.
func Consolidate(spans []recognizer.Candidate, strength int) Assignment {
	n := len(spans)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			if rj < ri {
				ri, rj = rj, ri
			}
			parent[rj] = ri // root is the earliest member
		}
	}

	norms := make([]string, n)
	toks := make([][]string, n)
	for i, sp := range spans {
		norms[i] = Normalize(sp.Text)
		toks[i] = strings.Fields(norms[i])
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if spans[i].Label != spans[j].Label {
				continue
			}
			if norms[i] == norms[j] {
				union(i, j)
				continue
			}
			if strength >= 1 && tokensMerge(toks[i], toks[j], strength+1) {
				union(i, j)
			}
		}
	}

	assignment := Assignment{EntityIDs: make([]int, n)}
	idByRoot := make(map[int]int)
	for i, sp := range spans {
		root := find(i)
		id, ok := idByRoot[root]
		if !ok {
			id = len(assignment.Clusters)
			idByRoot[root] = id
			assignment.Clusters = append(assignment.Clusters, Cluster{
				Label:         sp.Label,
				CanonicalText: spans[root].Text,
			})
		}
		assignment.EntityIDs[i] = id
		cl := &assignment.Clusters[id]
		if !contains(cl.Members, sp.Text) {
			cl.Members = append(cl.Members, sp.Text)
		}
	}
	return assignment
}

// Normalize folds case, trims, and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// tokensMerge reports whether two token sequences denote the same entity
// under the given total edit budget.
func tokensMerge(a, b []string, budget int) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if isTokenSubsequence(a, b) || isTokenSubsequence(b, a) {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	total := 0
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if len(a[i]) <= shortTokenLen || len(b[i]) <= shortTokenLen {
			return false
		}
		total += levenshtein(a[i], b[i])
		if total > budget {
			return false
		}
	}
	return true
}

// isTokenSubsequence reports whether sub's tokens all appear, in order,
// within full's tokens.
func isTokenSubsequence(sub, full []string) bool {
	if len(sub) >= len(full) {
		return false
	}
	i := 0
	for _, tok := range full {
		if i < len(sub) && sub[i] == tok {
			i++
		}
	}
	return i == len(sub)
}

// levenshtein computes the edit distance between two strings using a
// two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
