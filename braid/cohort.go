// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package braid

// genesisOf returns the set of indices with no parents under parents.
func genesisOf(parents map[int]intSet) intSet {
	out := intSet{}
	for idx, p := range parents {
		if len(p) == 0 {
			out[idx] = struct{}{}
		}
	}
	return out
}

// tipsOf returns the set of indices with no children under children.
func tipsOf(children map[int]intSet) intSet {
	out := intSet{}
	for idx, c := range children {
		if len(c) == 0 {
			out[idx] = struct{}{}
		}
	}
	return out
}

// reverseOf builds the children adjacency from a parents adjacency.
func reverseOf(parents map[int]intSet) map[int]intSet {
	children := make(map[int]intSet, len(parents))
	for idx := range parents {
		children[idx] = intSet{}
	}
	for idx, p := range parents {
		for parentIdx := range p {
			if children[parentIdx] == nil {
				children[parentIdx] = intSet{}
			}
			children[parentIdx][idx] = struct{}{}
		}
	}
	return children
}

// generationOf returns the union of the direct children of every index in
// set.
func generationOf(children map[int]intSet, set intSet) intSet {
	out := intSet{}
	for idx := range set {
		for child := range children[idx] {
			out[child] = struct{}{}
		}
	}
	return out
}

// ancestorClosure returns the full set of transitive ancestors of index,
// memoized across calls sharing the same memo map so repeated closures
// over a shared parents relation don't redo work already computed for a
// common ancestor.
func ancestorClosure(parents map[int]intSet, memo map[int]intSet, index int) intSet {
	if cached, ok := memo[index]; ok {
		return cached
	}
	out := intSet{}
	for parentIdx := range parents[index] {
		out[parentIdx] = struct{}{}
		for anc := range ancestorClosure(parents, memo, parentIdx) {
			out[anc] = struct{}{}
		}
	}
	memo[index] = out
	return out
}

// frontierAncestorClosure computes ancestors of index relative to frontier:
// members of frontier are treated as roots that contribute themselves as an
// ancestor to anything that names them as a parent, but never contribute
// ancestors of their own. This is what the cohort-sealing loop needs: "is
// the tail's ancestry fully and only explained by what the current cohort
// has absorbed so far", not "what are this bead's true ancestors all the
// way back to the braid's genesis".
func frontierAncestorClosure(parents map[int]intSet, frontier intSet, memo map[int]intSet, index int) intSet {
	if cached, ok := memo[index]; ok {
		return cached
	}
	if _, isFrontier := frontier[index]; isFrontier {
		memo[index] = intSet{}
		return memo[index]
	}
	out := intSet{}
	for parentIdx := range parents[index] {
		out[parentIdx] = struct{}{}
		for anc := range frontierAncestorClosure(parents, frontier, memo, parentIdx) {
			out[anc] = struct{}{}
		}
	}
	memo[index] = out
	return out
}

// cohorts partitions the indices reachable from head (default: genesis)
// into the ordered sequence of disjoint cohorts described in spec §4.2:
// starting from a frontier, the working cohort absorbs its children
// (the "tail") until every tail member's ancestor set, measured back only as
// far as the round's frontier (frontierAncestorClosure), is exactly the
// cohort accumulated so far — at which point the cohort is sealed and the
// tail becomes the next frontier. If the tail is not yet a closed cut, it
// is folded into the cohort and the loop tries again (this is how
// concurrent branches that fan out and later merge end up in one cohort
// together, as in the three-way-fan-then-merge scenario).
func cohorts(parents map[int]intSet, head intSet) []intSet {
	children := reverseOf(parents)
	tips := tipsOf(children)

	var result []intSet
	frontier := head.clone()

	for len(frontier) > 0 {
		cohort := frontier.clone()
		// Ancestor closures are relative to this round's frontier and are
		// recomputed fresh each round: the same bead can have a different
		// relative-ancestor set depending on which cohort boundary it is
		// being measured against.
		ancestorMemo := make(map[int]intSet, len(parents))
		for {
			tail := generationOf(children, cohort)
			for idx := range tail {
				if _, already := cohort[idx]; already {
					delete(tail, idx)
				}
			}

			if len(tail) == 0 {
				// No further children: the cohort has absorbed every
				// reachable descendant, so this is the final cohort.
				frontier = intSet{}
				break
			}

			coversAllTips := true
			for tip := range tips {
				if _, in := cohort[tip]; !in {
					coversAllTips = false
					break
				}
			}
			if coversAllTips {
				for idx := range tail {
					cohort[idx] = struct{}{}
				}
				frontier = intSet{}
				break
			}

			closed := true
			for idx := range tail {
				if !frontierAncestorClosure(parents, frontier, ancestorMemo, idx).equals(cohort) {
					closed = false
					break
				}
			}
			if closed {
				frontier = tail
				break
			}

			for idx := range tail {
				cohort[idx] = struct{}{}
			}
		}

		if len(cohort) > 0 {
			result = append(result, cohort)
		}
	}

	return result
}

// RecomputeCohorts recomputes the full cohort decomposition of the braid from
// scratch, used for verification and consensus queries (the live Braid
// keeps a coarser, incrementally-maintained cohort list in Extend; this
// function is the precise version spec §4.2 calls "recomputed on demand").
func (b *Braid) RecomputeCohorts() [][]int {
	cuts := cohorts(b.Parents, genesisOf(b.Parents))
	out := make([][]int, len(cuts))
	for i, c := range cuts {
		out[i] = c.sorted()
	}
	return out
}
