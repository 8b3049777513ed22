// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package braid

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
	"github.com/stretchr/testify/require"
)

// testBead builds a synthetic bead distinguished by nonce, with the given
// parent hashes. It is not signed or PoW-checked: these are concerns of the
// sharebuilder/signer packages, exercised elsewhere.
func testBead(nonce uint32, parents ...chainhash.Hash) wire.Bead {
	timestamps := make([]uint32, len(parents))
	b := wire.Bead{
		Header: wire.BlockHeader{
			Version: 1,
			Nonce:   nonce,
		},
		Committed: wire.CommittedMetadata{
			Parents:              parents,
			ParentBeadTimestamps: timestamps,
			MinTarget:            0x207fffff,
			WeakTarget:           0x207fffff,
		},
	}
	b.Committed.NormalizeParents()
	return b
}

func indexSlice(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	sortInts(out)
	return out
}

func TestScenarioALinearChain(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	b1 := testBead(1, g.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	b2 := testBead(2, b1.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b2))
	b3 := testBead(3, b2.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b3))

	require.Len(t, b.Tips, 1)
	_, isTip := b.Tips[3]
	require.True(t, isTip)

	cohorts := b.RecomputeCohorts()
	require.Equal(t, [][]int{{0}, {1}, {2}, {3}}, cohorts)

	path := b.HighestWorkPath()
	require.Equal(t, []int{0, 1, 2, 3}, path)
}

func TestScenarioBDiamond(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	b1 := testBead(1, g.BeadHash())
	b2 := testBead(2, g.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	require.Equal(t, BeadAdded, b.Extend(b2))

	b3 := testBead(3, b1.BeadHash(), b2.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b3))

	b4 := testBead(4, b3.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b4))

	cohorts := b.RecomputeCohorts()
	require.Len(t, cohorts, 4)
	require.Equal(t, []int{0}, cohorts[0])
	require.Equal(t, []int{1, 2}, cohorts[1])
	require.Equal(t, []int{3}, cohorts[2])
	require.Equal(t, []int{4}, cohorts[3])

	// B1 and B2 tie on work; B1 (the older, smaller index) wins.
	path := b.HighestWorkPath()
	require.Equal(t, []int{0, 1, 3, 4}, path)
}

func TestScenarioCFanThenMerge(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	b1 := testBead(1, g.BeadHash())
	b2 := testBead(2, g.BeadHash())
	b3 := testBead(3, g.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	require.Equal(t, BeadAdded, b.Extend(b2))
	require.Equal(t, BeadAdded, b.Extend(b3))

	b4 := testBead(4, b1.BeadHash())
	b5 := testBead(5, b2.BeadHash())
	b6 := testBead(6, b3.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b4))
	require.Equal(t, BeadAdded, b.Extend(b5))
	require.Equal(t, BeadAdded, b.Extend(b6))

	b7 := testBead(7, b4.BeadHash(), b5.BeadHash(), b6.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b7))

	cohorts := b.RecomputeCohorts()
	require.Len(t, cohorts, 3)
	require.Equal(t, []int{0}, cohorts[0])
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, cohorts[1])
	require.Equal(t, []int{7}, cohorts[2])
}

func TestScenarioDOrphanHandling(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	b1 := testBead(1, g.BeadHash())
	b2 := testBead(2, b1.BeadHash())

	require.Equal(t, ParentsNotYetReceived, b.Extend(b2))
	require.Len(t, b.OrphanBeads, 1)

	require.Equal(t, BeadAdded, b.Extend(b1))

	require.Equal(t, 3, b.BeadCount())
	require.Empty(t, b.OrphanBeads)
	require.Len(t, b.Tips, 1)
	_, ok := b.GetBead(b2.BeadHash())
	require.True(t, ok)
}

func TestScenarioEDuplicateDelivery(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	b1 := testBead(1, g.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	require.Equal(t, DagAlreadyContainsBead, b.Extend(b1))
	require.Equal(t, 2, b.BeadCount())
}

func TestExtendEmptyBraidWithGenesis(t *testing.T) {
	b := New(nil)
	require.Equal(t, 0, b.BeadCount())

	g := testBead(0)
	require.Equal(t, BeadAdded, b.Extend(g))
	require.Equal(t, 1, b.BeadCount())
	_, isGenesis := b.GenesisBeads[0]
	require.True(t, isGenesis)
}

func TestExtendRejectsBeadFailingValidator(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})
	b.Validate = func(bead *wire.Bead) bool { return false }

	b1 := testBead(1, g.BeadHash())
	require.Equal(t, InvalidBead, b.Extend(b1))
	require.Equal(t, 1, b.BeadCount())
}

func TestExtendRejectsEmptyParentsOnNonEmptyBraid(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	orphanLooking := testBead(99)
	require.Equal(t, InvalidBead, b.Extend(orphanLooking))
}

func TestCheckGenesisBeads(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})

	require.Equal(t, GenesisBeadsValid, b.CheckGenesisBeads([]chainhash.Hash{g.BeadHash()}))
	require.Equal(t, GenesisBeadsCountMismatch, b.CheckGenesisBeads(nil))

	other := testBead(123)
	require.Equal(t, MissingGenesisBead, b.CheckGenesisBeads([]chainhash.Hash{other.BeadHash()}))
}

func TestGetBeadsAfter(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})
	b1 := testBead(1, g.BeadHash())
	b2 := testBead(2, b1.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	require.Equal(t, BeadAdded, b.Extend(b2))

	after := b.GetBeadsAfter([]chainhash.Hash{b1.BeadHash()})
	hashes := make(map[chainhash.Hash]bool, len(after))
	for _, bead := range after {
		hashes[bead.BeadHash()] = true
	}
	require.True(t, hashes[b1.BeadHash()])
	require.True(t, hashes[b2.BeadHash()])
	require.False(t, hashes[g.BeadHash()])

	// Unknown hash: empty result rather than an error or the whole braid.
	unknown := testBead(404)
	fromUnknown := b.GetBeadsAfter([]chainhash.Hash{unknown.BeadHash()})
	require.Empty(t, fromUnknown)
}

func TestCheckCohortHoldsForEveryRecomputedCohort(t *testing.T) {
	g := testBead(0)
	b := New([]wire.Bead{g})
	b1 := testBead(1, g.BeadHash())
	b2 := testBead(2, g.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b1))
	require.Equal(t, BeadAdded, b.Extend(b2))
	b3 := testBead(3, b1.BeadHash(), b2.BeadHash())
	require.Equal(t, BeadAdded, b.Extend(b3))

	for _, cohort := range b.RecomputeCohorts() {
		require.True(t, b.CheckCohort(cohort), "cohort %v failed closure check", cohort)
	}
}

func TestCommutativityOfIndependentBeads(t *testing.T) {
	build := func(order []int) *Braid {
		g := testBead(0)
		beads := map[int]wire.Bead{0: g}
		b1 := testBead(1, g.BeadHash())
		b2 := testBead(2, g.BeadHash())
		beads[1] = b1
		beads[2] = b2

		braidState := New([]wire.Bead{g})
		for _, idx := range order {
			braidState.Extend(beads[idx])
		}
		return braidState
	}

	first := build([]int{1, 2})
	second := build([]int{2, 1})

	require.Equal(t, first.RecomputeCohorts(), second.RecomputeCohorts())
}
