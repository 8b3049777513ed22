// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package braid implements the append-only DAG of beads ("the braid"):
// its cohort decomposition, ancestor/descendant work accumulation,
// highest-work path selection, and orphan handling.
package braid

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// AddBeadStatus is the outcome of attempting to integrate one bead into the
// braid via Extend.
type AddBeadStatus int

const (
	BeadAdded AddBeadStatus = iota
	DagAlreadyContainsBead
	InvalidBead
	ParentsNotYetReceived
)

func (s AddBeadStatus) String() string {
	switch s {
	case BeadAdded:
		return "BeadAdded"
	case DagAlreadyContainsBead:
		return "DagAlreadyContainsBead"
	case InvalidBead:
		return "InvalidBead"
	case ParentsNotYetReceived:
		return "ParentsNotYetReceived"
	default:
		return "Unknown"
	}
}

// GenesisCheckStatus is the outcome of CheckGenesisBeads.
type GenesisCheckStatus int

const (
	GenesisBeadsValid GenesisCheckStatus = iota
	MissingGenesisBead
	GenesisBeadsCountMismatch
)

func (s GenesisCheckStatus) String() string {
	switch s {
	case GenesisBeadsValid:
		return "GenesisBeadsValid"
	case MissingGenesisBead:
		return "MissingGenesisBead"
	case GenesisBeadsCountMismatch:
		return "GenesisBeadsCountMismatch"
	default:
		return "Unknown"
	}
}

// intSet is the adjacency/index set type used throughout the package: a
// bead's local index is its position in Braid.Beads.
type intSet map[int]struct{}

func newIntSet(indices ...int) intSet {
	s := make(intSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

func (s intSet) clone() intSet {
	c := make(intSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

func (s intSet) sorted() []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sortInts(out)
	return out
}

func (s intSet) equals(o intSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

func sortInts(s []int) {
	// insertion sort is fine: cohorts and adjacency sets are small relative
	// to typical share-chain fan-out.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// WorkFunc assigns a strictly positive work value to a bead given its local
// index. The default (UnitWork) gives every bead weight 1; a node MAY wire
// in a function derived from each bead's weak_target for true PoW-weighted
// ordering (spec §4.2 "Work and ordering").
type WorkFunc func(beads []wire.Bead, index int) uint64

// UnitWork is the default WorkFunc: every bead counts for exactly one unit
// of work, matching a pure share-count ordering.
func UnitWork(beads []wire.Bead, index int) uint64 { return 1 }

// Validator reports whether a non-genesis bead is structurally acceptable
// before Extend admits it. Per the open question in spec §9 ("the exact set
// of InvalidBead rejection rules beyond non-genesis-with-empty-parents is
// not fully specified"), this hook lets the braid itself enforce
// weak-target PoW and signature validity rather than trusting the builder
// unconditionally — defense in depth against a bead that reached Extend by
// some path other than the builder (e.g. a malicious or buggy peer feed).
type Validator func(bead *wire.Bead) bool

// Braid is the local DAG of beads plus the derived indices used to answer
// structural queries without rescanning all beads.
type Braid struct {
	Beads    []wire.Bead
	Tips     intSet
	Cohorts  []intSet
	CohortTips []intSet

	OrphanBeads []wire.Bead

	GenesisBeads intSet

	BeadIndex map[chainhash.Hash]int

	Parents  map[int]intSet
	Children map[int]intSet

	Work WorkFunc

	// Validate, if set, is consulted for every non-genesis bead before it
	// is admitted. A nil Validate performs no additional check beyond the
	// structural parent-shape rules Extend always enforces.
	Validate Validator
}
