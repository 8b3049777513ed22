// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package braid

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// New initializes a Braid from a set of genesis beads. All given beads
// become indices 0..K-1, populate the genesis set, form cohort 0, and
// become the initial tips.
func New(genesisBeads []wire.Bead) *Braid {
	b := &Braid{
		Beads:        make([]wire.Bead, 0, len(genesisBeads)),
		Tips:         intSet{},
		GenesisBeads: intSet{},
		BeadIndex:    make(map[chainhash.Hash]int, len(genesisBeads)),
		Parents:      make(map[int]intSet),
		Children:     make(map[int]intSet),
		Work:         UnitWork,
	}

	for _, bead := range genesisBeads {
		index := len(b.Beads)
		b.Beads = append(b.Beads, bead)
		b.BeadIndex[bead.BeadHash()] = index
		b.GenesisBeads[index] = struct{}{}
		b.Tips[index] = struct{}{}
		b.Parents[index] = intSet{}
		b.Children[index] = intSet{}
	}

	if len(b.Beads) != 0 {
		b.Cohorts = []intSet{b.GenesisBeads.clone()}
		b.CohortTips = []intSet{b.Tips.clone()}
	}

	log.Debugf("braid initialized with %d genesis bead(s)", len(b.Beads))
	return b
}

// Extend attempts to integrate bead into the braid. This is the normative
// algorithm from the engine's design (spec §4.2): parent presence and
// emptiness are checked synchronously; nothing here ever reaches onto the
// network to fetch a missing parent — that is C4's job, triggered by a
// ParentsNotYetReceived result.
//
// The bead builder (sharebuilder) checks proof-of-work and signs the bead
// before ever calling Extend; Braid.Validate, when wired, is
// the second line of defense for beads that reach Extend by some other
// path (gossip, sync replay) where that guarantee cannot be assumed.
func (b *Braid) Extend(bead wire.Bead) AddBeadStatus {
	bead.Committed.NormalizeParents()

	if len(b.Beads) == 0 && len(bead.Committed.Parents) == 0 {
		*b = *New([]wire.Bead{bead})
		return BeadAdded
	}

	if len(bead.Committed.Parents) == 0 {
		log.Warnf("rejecting non-genesis bead %s with empty parent set", bead.BeadHash())
		return InvalidBead
	}

	if b.Validate != nil && !b.Validate(&bead) {
		log.Warnf("rejecting bead %s: failed validation", bead.BeadHash())
		return InvalidBead
	}

	for _, parentHash := range bead.Committed.Parents {
		if _, ok := b.BeadIndex[parentHash]; !ok {
			b.OrphanBeads = append(b.OrphanBeads, bead)
			return ParentsNotYetReceived
		}
	}

	beadHash := bead.BeadHash()
	if _, ok := b.BeadIndex[beadHash]; ok {
		return DagAlreadyContainsBead
	}

	newIndex := len(b.Beads)
	b.Beads = append(b.Beads, bead)
	b.BeadIndex[beadHash] = newIndex

	parentIndices := make(intSet, len(bead.Committed.Parents))
	for _, parentHash := range bead.Committed.Parents {
		parentIndex := b.BeadIndex[parentHash]
		parentIndices[parentIndex] = struct{}{}
		if b.Children[parentIndex] == nil {
			b.Children[parentIndex] = intSet{}
		}
		b.Children[parentIndex][newIndex] = struct{}{}
		delete(b.Tips, parentIndex)
	}
	b.Parents[newIndex] = parentIndices
	b.Children[newIndex] = intSet{}
	b.Tips[newIndex] = struct{}{}

	b.invalidateCohorts(newIndex, parentIndices)

	b.processOrphanBeads()

	log.Debugf("bead %s added at index %d (%d parent(s))", beadHash, newIndex, len(parentIndices))
	return BeadAdded
}

// invalidateCohorts scans cohorts from newest to oldest looking for the
// youngest cohort that fully accounts for the new bead's parents, discards
// every cohort strictly newer than that point, and collapses the discarded
// beads plus the new bead into one coarse replacement cohort (spec §9,
// "Dangling region in extend" — the coarse variant the design notes
// explicitly sanction, rather than eagerly recomputing fine cohorts over
// the affected region).
func (b *Braid) invalidateCohorts(newIndex int, parentIndices intSet) {
	dangling := newIntSet(newIndex)
	found := intSet{}
	removeAfter := -1

	for i := len(b.Cohorts) - 1; i >= 0; i-- {
		cohort := b.Cohorts[i]
		for parentIndex := range parentIndices {
			if _, ok := cohort[parentIndex]; ok {
				found[parentIndex] = struct{}{}
			}
		}

		if len(found) > 0 && len(found) == len(parentIndices) && b.CohortTips[i].equals(found) {
			removeAfter = i + 1
			break
		}

		for idx := range cohort {
			dangling[idx] = struct{}{}
		}
		if len(found) == len(parentIndices) {
			removeAfter = i
			break
		}
	}

	if removeAfter >= 0 {
		b.Cohorts = b.Cohorts[:removeAfter]
		b.CohortTips = b.CohortTips[:removeAfter]
	} else {
		b.Cohorts = nil
		b.CohortTips = nil
	}

	b.Cohorts = append(b.Cohorts, dangling)
	b.CohortTips = append(b.CohortTips, b.Tips.clone())
}

// processOrphanBeads replays any buffered orphan whose parents have all
// since become available. A successful replay may itself unblock further
// orphans, so the scan restarts after each promotion; it terminates because
// the orphan set is finite and strictly shrinks on every promotion.
func (b *Braid) processOrphanBeads() {
	for i := len(b.OrphanBeads) - 1; i >= 0; i-- {
		orphan := b.OrphanBeads[i]

		allPresent := true
		for _, parentHash := range orphan.Committed.Parents {
			if _, ok := b.BeadIndex[parentHash]; !ok {
				allPresent = false
				break
			}
		}
		if !allPresent {
			continue
		}

		b.OrphanBeads = append(b.OrphanBeads[:i], b.OrphanBeads[i+1:]...)
		switch b.Extend(orphan) {
		case BeadAdded:
			b.processOrphanBeads()
			return
		case ParentsNotYetReceived:
			b.OrphanBeads = append(b.OrphanBeads, orphan)
		case DagAlreadyContainsBead, InvalidBead:
			// drop and keep scanning
		}
	}
}

// CheckGenesisBeads compares a peer-reported genesis set against the local
// one, used by the sync protocol to refuse peers that disagree on genesis.
func (b *Braid) CheckGenesisBeads(genesisHashes []chainhash.Hash) GenesisCheckStatus {
	if len(genesisHashes) != len(b.GenesisBeads) {
		return GenesisBeadsCountMismatch
	}
	for _, hash := range genesisHashes {
		index, ok := b.BeadIndex[hash]
		if !ok {
			return MissingGenesisBead
		}
		if _, ok := b.GenesisBeads[index]; !ok {
			return MissingGenesisBead
		}
	}
	return GenesisBeadsValid
}

// InsertGenesisBeads adds additional genesis beads to an already-running
// braid without disturbing existing indices — used when an operator's
// configured genesis set grows (e.g. merging policy across a federation of
// pools). Beads already known by hash are skipped.
func (b *Braid) InsertGenesisBeads(genesisBeads []wire.Bead) {
	for _, bead := range genesisBeads {
		hash := bead.BeadHash()
		if _, ok := b.BeadIndex[hash]; ok {
			continue
		}
		index := len(b.Beads)
		b.Beads = append(b.Beads, bead)
		b.BeadIndex[hash] = index
		b.GenesisBeads[index] = struct{}{}
		if b.Parents[index] == nil {
			b.Parents[index] = intSet{}
		}
		if b.Children[index] == nil {
			b.Children[index] = intSet{}
		}
	}
}

// TipHashes returns a snapshot of the current tip hashes.
func (b *Braid) TipHashes() []chainhash.Hash {
	return b.hashesOf(b.Tips)
}

// GenesisHashes returns a snapshot of the genesis bead hashes.
func (b *Braid) GenesisHashes() []chainhash.Hash {
	return b.hashesOf(b.GenesisBeads)
}

func (b *Braid) hashesOf(s intSet) []chainhash.Hash {
	out := make([]chainhash.Hash, 0, len(s))
	for _, idx := range s.sorted() {
		out = append(out, b.Beads[idx].BeadHash())
	}
	return out
}

// AllBeads returns every bead in ascending local-index order.
func (b *Braid) AllBeads() []wire.Bead {
	out := make([]wire.Bead, len(b.Beads))
	copy(out, b.Beads)
	return out
}

// GetBead returns the bead with the given hash, if present.
func (b *Braid) GetBead(hash chainhash.Hash) (*wire.Bead, bool) {
	idx, ok := b.BeadIndex[hash]
	if !ok {
		return nil, false
	}
	bead := b.Beads[idx]
	return &bead, true
}

// GetBeads returns the subset of hashes that are present, in the order
// requested; unknown hashes are silently skipped.
func (b *Braid) GetBeads(hashes []chainhash.Hash) []wire.Bead {
	out := make([]wire.Bead, 0, len(hashes))
	for _, hash := range hashes {
		if idx, ok := b.BeadIndex[hash]; ok {
			out = append(out, b.Beads[idx])
		}
	}
	return out
}

// GetBeadsAfter returns every bead in cohorts at or after the earliest
// cohort index containing any of tips. Unknown hashes are ignored; if none
// of tips resolves to a known bead, it returns an empty result rather than
// an error or the entire braid (spec §9 open questions).
func (b *Braid) GetBeadsAfter(tips []chainhash.Hash) []wire.Bead {
	earliest := len(b.Cohorts)
	found := false
	for _, hash := range tips {
		idx, ok := b.BeadIndex[hash]
		if !ok {
			continue
		}
		for cohortIdx, cohort := range b.Cohorts {
			if _, in := cohort[idx]; in && cohortIdx < earliest {
				earliest = cohortIdx
				found = true
			}
		}
	}
	if !found {
		return nil
	}

	var out []wire.Bead
	for i := earliest; i < len(b.Cohorts); i++ {
		for _, idx := range b.Cohorts[i].sorted() {
			out = append(out, b.Beads[idx])
		}
	}
	return out
}

// CohortCount returns the number of cohorts currently recorded.
func (b *Braid) CohortCount() int { return len(b.Cohorts) }

// BeadCount returns the total number of beads in the braid.
func (b *Braid) BeadCount() int { return len(b.Beads) }
