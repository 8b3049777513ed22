// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package braid

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// SafeBraid guards a Braid behind a reader-writer lock per the concurrency
// model in spec §5: Extend, New (re-init), and orphan-buffer mutation take
// the writer lock; all read-only queries take the reader lock. The writer
// lock is held for the minimum duration needed to complete one Extend call,
// including any cascaded orphan promotions it triggers internally.
type SafeBraid struct {
	mu sync.RWMutex
	b  *Braid
}

// NewSafe wraps a freshly initialized Braid in a SafeBraid.
func NewSafe(genesisBeads []wire.Bead) *SafeBraid {
	return &SafeBraid{b: New(genesisBeads)}
}

// Extend acquires the writer lock and integrates bead into the braid.
func (s *SafeBraid) Extend(bead wire.Bead) AddBeadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Extend(bead)
}

// SetValidator installs the bead validation hook under the writer lock.
func (s *SafeBraid) SetValidator(v Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.Validate = v
}

// InsertGenesisBeads acquires the writer lock and adds additional genesis
// beads.
func (s *SafeBraid) InsertGenesisBeads(genesisBeads []wire.Bead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.InsertGenesisBeads(genesisBeads)
}

// Tips returns a snapshot of the current tip hashes under the reader lock.
func (s *SafeBraid) Tips() []chainhash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.TipHashes()
}

// Genesis returns a snapshot of the genesis bead hashes under the reader
// lock.
func (s *SafeBraid) Genesis() []chainhash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.GenesisHashes()
}

// CheckGenesisBeads compares a peer-reported genesis set against the local
// one under the reader lock.
func (s *SafeBraid) CheckGenesisBeads(genesisHashes []chainhash.Hash) GenesisCheckStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.CheckGenesisBeads(genesisHashes)
}

// AllBeads returns every bead in ascending local-index order under the
// reader lock.
func (s *SafeBraid) AllBeads() []wire.Bead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.AllBeads()
}

// GetBead returns the bead with the given hash, if present, under the
// reader lock.
func (s *SafeBraid) GetBead(hash chainhash.Hash) (*wire.Bead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.GetBead(hash)
}

// GetBeads returns the subset of hashes that are present under the reader
// lock.
func (s *SafeBraid) GetBeads(hashes []chainhash.Hash) []wire.Bead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.GetBeads(hashes)
}

// GetBeadsAfter returns every bead at or after the earliest cohort
// containing any of tips, under the reader lock.
func (s *SafeBraid) GetBeadsAfter(tips []chainhash.Hash) []wire.Bead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.GetBeadsAfter(tips)
}

// CohortCount returns the number of cohorts currently recorded, under the
// reader lock.
func (s *SafeBraid) CohortCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.CohortCount()
}

// BeadCount returns the total number of beads in the braid, under the
// reader lock.
func (s *SafeBraid) BeadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.BeadCount()
}

// HighestWorkPath returns the canonical highest-work path under the reader
// lock.
func (s *SafeBraid) HighestWorkPath() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.HighestWorkPath()
}
