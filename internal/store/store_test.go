// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/braidpool/node/wire"
)

func newMemStore(t *testing.T) *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	s := &Store{db: db, queue: make(chan wire.Bead, defaultQueueDepth), done: make(chan struct{})}
	go s.run()
	t.Cleanup(func() { s.Close() })
	return s
}

func testBead(nonce uint32) wire.Bead {
	return wire.Bead{Header: wire.BlockHeader{Version: 1, Nonce: nonce}}
}

func TestInsertThenGetBead(t *testing.T) {
	s := newMemStore(t)
	b := testBead(1)
	s.InsertBead(b)

	require.Eventually(t, func() bool {
		got, err := s.GetBead(b.BeadHash())
		return err == nil && got != nil
	}, time.Second, time.Millisecond)

	got, err := s.GetBead(b.BeadHash())
	require.NoError(t, err)
	require.Equal(t, b.BeadHash(), got.BeadHash())
}

func TestGetBeadUnknownHashReturnsNilNotError(t *testing.T) {
	s := newMemStore(t)
	unknown := testBead(99).BeadHash()

	got, err := s.GetBead(unknown)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAllBeadsReturnsEveryInsertedBead(t *testing.T) {
	s := newMemStore(t)
	b1 := testBead(1)
	b2 := testBead(2)
	s.InsertBead(b1)
	s.InsertBead(b2)

	require.Eventually(t, func() bool {
		all, err := s.AllBeads()
		return err == nil && len(all) == 2
	}, time.Second, time.Millisecond)
}
