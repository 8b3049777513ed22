// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package braid

import "github.com/braidpool/node/wire"

// accumulateWork computes, for every bead index appearing in cohortOrder, a
// running total of its own work plus the work of every descendant reachable
// via adjacency — "descendant" here being whatever direction adjacency
// encodes (children for true descendants, parents for true ancestors).
// cohortOrder must already be arranged so that cohorts whose members should
// be folded into the running `previous` accumulator come first: newest to
// oldest for a descendant-work pass, oldest to newest for an
// ancestor-work pass.
func accumulateWork(beads []wire.Bead, work WorkFunc, cohortOrder []intSet, adjacency map[int]intSet) map[int]uint64 {
	result := make(map[int]uint64)
	var previous uint64

	for _, cohort := range cohortOrder {
		memo := make(map[int]intSet, len(cohort))
		var closureWithin func(idx int) intSet
		closureWithin = func(idx int) intSet {
			if cached, ok := memo[idx]; ok {
				return cached
			}
			out := intSet{}
			for next := range adjacency[idx] {
				if _, in := cohort[next]; !in {
					continue
				}
				out[next] = struct{}{}
				for sub := range closureWithin(next) {
					out[sub] = struct{}{}
				}
			}
			memo[idx] = out
			return out
		}

		var cohortTotal uint64
		for idx := range cohort {
			own := work(beads, idx)
			var internal uint64
			for d := range closureWithin(idx) {
				internal += work(beads, d)
			}
			result[idx] = own + internal + previous
			cohortTotal += own
		}
		previous += cohortTotal
	}

	return result
}

func reverseCohortOrder(order [][]int) []intSet {
	out := make([]intSet, len(order))
	for i, c := range order {
		out[len(order)-1-i] = newIntSet(c...)
	}
	return out
}

func forwardCohortOrder(order [][]int) []intSet {
	out := make([]intSet, len(order))
	for i, c := range order {
		out[i] = newIntSet(c...)
	}
	return out
}

// DescendantWork returns descendant_work(i) for every bead index: its own
// work plus the work of every strict descendant, per spec §4.2.
func (b *Braid) DescendantWork() map[int]uint64 {
	cohortsAscending := b.RecomputeCohorts()
	return accumulateWork(b.Beads, b.Work, reverseCohortOrder(cohortsAscending), b.Children)
}

// AncestorWork returns ancestor_work(i) for every bead index: its own work
// plus the work of every strict ancestor.
func (b *Braid) AncestorWork() map[int]uint64 {
	cohortsAscending := b.RecomputeCohorts()
	return accumulateWork(b.Beads, b.Work, forwardCohortOrder(cohortsAscending), b.Parents)
}

// Comparator evaluates the total order spec §4.2 defines over bead indices:
// higher descendant_work wins; ties broken by higher ancestor_work; further
// ties broken by the SMALLER local index winning (older beads win), since
// index order reflects insertion order, not consensus-portable identity
// (spec §9 design note — treat this tail as valid only for in-process
// queries, not cross-node agreement).
type Comparator struct {
	descendantWork map[int]uint64
	ancestorWork   map[int]uint64
}

// NewComparator snapshots the current descendant/ancestor work maps so
// repeated comparisons (e.g. during HighestWorkPath) don't recompute the
// whole braid's cohort decomposition per comparison.
func (b *Braid) NewComparator() *Comparator {
	return &Comparator{
		descendantWork: b.DescendantWork(),
		ancestorWork:   b.AncestorWork(),
	}
}

// Less reports whether bead index a sorts strictly before bead index b
// under the comparator (a < b).
func (c *Comparator) Less(a, b int) bool {
	if c.descendantWork[a] != c.descendantWork[b] {
		return c.descendantWork[a] < c.descendantWork[b]
	}
	if c.ancestorWork[a] != c.ancestorWork[b] {
		return c.ancestorWork[a] < c.ancestorWork[b]
	}
	return a > b
}

// Max returns whichever of a, b compares greater under the comparator.
func (c *Comparator) Max(a, b int) int {
	if c.Less(a, b) {
		return b
	}
	return a
}

// HighestWorkPath walks from the maximum genesis bead under the comparator,
// at each step choosing the maximum child, until a tip is reached.
func (b *Braid) HighestWorkPath() []int {
	if len(b.GenesisBeads) == 0 {
		return nil
	}
	cmp := b.NewComparator()

	var current int
	first := true
	for idx := range b.GenesisBeads {
		if first {
			current = idx
			first = false
			continue
		}
		current = cmp.Max(current, idx)
	}

	path := []int{current}
	for {
		children := b.Children[current]
		if len(children) == 0 {
			break
		}
		var best int
		bestSet := false
		for child := range children {
			if !bestSet {
				best = child
				bestSet = true
				continue
			}
			best = cmp.Max(best, child)
		}
		path = append(path, best)
		current = best
	}
	return path
}
