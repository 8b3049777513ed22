// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sharebuilder turns a miner's share submission into a validated
// bead and extends the local braid with it (spec §4.3).
package sharebuilder

import (
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// Job is a block template handed to miners, keyed by an id scoped to the
// connection that requested it. The design notes call out the source's
// job-id counter as process-wide and recommend per-connection scope instead
// to avoid one miner's job churn invalidating another's in-flight work; the
// JobBook below is that per-connection allocator.
type Job struct {
	ID             uint64
	TemplateRef    string
	CoinbasePrefix []byte
	CoinbaseSuffix []byte
	MerklePath     []chainhash.Hash
	Version        int32
	PrevBlock      chainhash.Hash
	Bits           wire.CompactTarget
	Time           uint32
	VersionMask    *uint32

	// WeakTarget is the share target this job's miner must satisfy; it is
	// at least as hard as MinTarget (policy floor for the network).
	WeakTarget wire.CompactTarget
	MinTarget  wire.CompactTarget
}

// ShareSubmission is what the mining front-end delivers per `submit`.
type ShareSubmission struct {
	JobID        uint64
	ConnectionID uint64
	ExtraNonce2  []byte
	Ntime        uint32
	Nonce        uint32
	VersionBits  *uint32
}

// JobBook tracks the live job set for one miner connection: a private,
// monotonically increasing id counter plus a lookup table, so no two
// connections ever contend over the same counter.
type JobBook struct {
	mu      sync.RWMutex
	nextID  uint64
	jobs    map[uint64]Job
}

// NewJobBook creates an empty per-connection job book.
func NewJobBook() *JobBook {
	return &JobBook{jobs: make(map[uint64]Job)}
}

// Add assigns the next id to job and records it, returning the assigned id.
func (jb *JobBook) Add(job Job) uint64 {
	id := atomic.AddUint64(&jb.nextID, 1)
	job.ID = id

	jb.mu.Lock()
	jb.jobs[id] = job
	jb.mu.Unlock()
	return id
}

// Get looks up a job by id.
func (jb *JobBook) Get(id uint64) (Job, bool) {
	jb.mu.RLock()
	defer jb.mu.RUnlock()
	job, ok := jb.jobs[id]
	return job, ok
}

// Forget drops a job, e.g. once it has been superseded by a newer template.
func (jb *JobBook) Forget(id uint64) {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	delete(jb.jobs, id)
}
