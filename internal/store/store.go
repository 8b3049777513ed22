// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store implements the best-effort persistence sink of spec §6:
// InsertBead(bead) must never sit on the critical path of braid.Extend, so
// writes are queued and applied by a background worker against a
// goleveldb-backed key/value store keyed by bead hash. The in-memory braid
// remains authoritative for a running process; this package exists purely
// to let a restarted node re-seed its braid without re-syncing from peers.
package store

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/braidpool/node/internal/braiderr"
	"github.com/braidpool/node/wire"
)

// defaultQueueDepth bounds how many pending InsertBead calls can queue
// before the sink starts dropping writes rather than blocking its caller.
const defaultQueueDepth = 4096

// Store is an async, best-effort bead sink backed by goleveldb.
type Store struct {
	db     *leveldb.DB
	queue  chan wire.Bead
	done   chan struct{}
}

// Open opens (creating if necessary) a goleveldb database at dir and starts
// its background writer goroutine.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:    db,
		queue: make(chan wire.Bead, defaultQueueDepth),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// InsertBead enqueues bead for persistence. It never blocks: if the queue
// is full, the write is dropped and logged, per spec §6's "best-effort,
// MUST NOT be on the critical path" contract. Extend must be able to call
// this from inside its own lock-holding path without risking contention
// with disk I/O.
func (s *Store) InsertBead(bead wire.Bead) {
	select {
	case s.queue <- bead:
	default:
		log.Warnf("persistence queue full, dropping bead %s", bead.BeadHash())
	}
}

func (s *Store) run() {
	for {
		select {
		case bead := <-s.queue:
			s.write(bead)
		case <-s.done:
			return
		}
	}
}

func (s *Store) write(bead wire.Bead) {
	encoded, err := wire.EncodeBead(&bead)
	if err != nil {
		log.Errorf("encoding bead %s for persistence: %v", bead.BeadHash(), err)
		return
	}
	hash := bead.BeadHash()
	if err := s.db.Put(hash[:], encoded, nil); err != nil {
		log.Errorf("persisting bead %s: %v", bead.BeadHash(), err)
	}
}

// GetBead loads a bead previously persisted by hash, used only at startup
// to re-seed the in-memory braid; never on Extend's critical path.
func (s *Store) GetBead(hash chainhash.Hash) (*wire.Bead, error) {
	raw, err := s.db.Get(hash[:], nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, braiderr.Wrap(braiderr.ErrStoreUnavailable, err)
	}
	return wire.DecodeBead(raw)
}

// AllBeads iterates the entire persisted set, used to rebuild the braid
// after a restart.
func (s *Store) AllBeads() ([]wire.Bead, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var beads []wire.Bead
	for iter.Next() {
		raw := make([]byte, len(iter.Value()))
		copy(raw, iter.Value())
		bead, err := wire.DecodeBead(raw)
		if err != nil {
			log.Errorf("decoding persisted bead during load: %v", err)
			continue
		}
		beads = append(beads, *bead)
	}
	return beads, iter.Error()
}

// Close stops the background writer and closes the underlying database.
// Any writes still queued when Close is called are dropped: a clean
// shutdown should drain QueueLen() down to zero first if those writes
// matter.
func (s *Store) Close() error {
	close(s.done)
	return s.db.Close()
}

// QueueLen reports how many writes are currently pending, for shutdown
// draining and metrics.
func (s *Store) QueueLen() int {
	return len(s.queue)
}
