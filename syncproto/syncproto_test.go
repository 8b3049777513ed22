// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncproto

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/wire"
)

func testBead(nonce uint32, parents ...chainhash.Hash) wire.Bead {
	ts := make([]uint32, len(parents))
	b := wire.Bead{
		Header:    wire.BlockHeader{Version: 1, Nonce: nonce},
		Committed: wire.CommittedMetadata{Parents: parents, ParentBeadTimestamps: ts},
	}
	b.Committed.NormalizeParents()
	return b
}

type fakeFeedback struct {
	events []FeedbackKind
}

func (f *fakeFeedback) Feedback(peerID string, kind FeedbackKind) {
	f.events = append(f.events, kind)
}

func TestHandleRequestGetTips(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})

	reqBytes, err := wire.EncodeBeadRequest(wire.NewGetTipsRequest())
	require.NoError(t, err)

	respBytes, err := HandleRequest(chain, reqBytes)
	require.NoError(t, err)

	resp, err := wire.DecodeBeadResponse(respBytes)
	require.NoError(t, err)
	require.Equal(t, wire.RespTips, resp.Kind)
	require.Equal(t, []chainhash.Hash{g.BeadHash()}, resp.TipHashes)
}

func TestHandleRequestGetBeads(t *testing.T) {
	g := testBead(0)
	b1 := testBead(1, g.BeadHash())
	chain := braid.NewSafe([]wire.Bead{g})
	require.Equal(t, braid.BeadAdded, chain.Extend(b1))

	reqBytes, err := wire.EncodeBeadRequest(wire.NewGetBeadsRequest([]chainhash.Hash{b1.BeadHash()}))
	require.NoError(t, err)

	respBytes, err := HandleRequest(chain, reqBytes)
	require.NoError(t, err)

	resp, err := wire.DecodeBeadResponse(respBytes)
	require.NoError(t, err)
	require.Equal(t, wire.RespBeads, resp.Kind)
	require.Len(t, resp.Beads, 1)
	require.Equal(t, b1.BeadHash(), resp.Beads[0].BeadHash())
}

func TestIngestResponseFoldsBeadsAndScoresFeedback(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})
	b1 := testBead(1, g.BeadHash())

	resp := wire.NewBeadsResponse([]wire.Bead{b1, b1})
	respBytes, err := wire.EncodeBeadResponse(resp)
	require.NoError(t, err)

	fb := &fakeFeedback{}
	require.NoError(t, IngestResponse(chain, "peer-a", respBytes, fb))

	require.Equal(t, 2, chain.BeadCount())
	require.Equal(t, []FeedbackKind{FeedbackBeadAdded}, fb.events)
}

func TestIngestResponseGenesisMismatch(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})
	other := testBead(99)

	resp := wire.NewGenesisResponse([]chainhash.Hash{other.BeadHash()})
	respBytes, err := wire.EncodeBeadResponse(resp)
	require.NoError(t, err)

	fb := &fakeFeedback{}
	err = IngestResponse(chain, "peer-a", respBytes, fb)
	require.Error(t, err)
	require.Equal(t, []FeedbackKind{FeedbackGenesisMismatch}, fb.events)
}

type fakeRanker struct{ peers []string }

func (r *fakeRanker) TopPeers(k int) []string {
	if k > len(r.peers) {
		k = len(r.peers)
	}
	return r.peers[:k]
}

type fakeSender struct {
	respond func(peerID string, payload []byte) ([]byte, error)
}

func (s *fakeSender) SendRequest(peerID string, payload []byte) ([]byte, error) {
	return s.respond(peerID, payload)
}

func TestRequestMissingParentsNoPeerAvailable(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})
	missing := []chainhash.Hash{g.BeadHash()}

	remaining, err := RequestMissingParents(chain, &fakeRanker{}, &fakeSender{}, &fakeFeedback{}, missing)
	require.NoError(t, err)
	require.Equal(t, missing, remaining)
}

func TestRequestMissingParentsDeliversBead(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})
	b1 := testBead(1, g.BeadHash())

	ranker := &fakeRanker{peers: []string{"peer-a"}}
	sender := &fakeSender{respond: func(peerID string, payload []byte) ([]byte, error) {
		return wire.EncodeBeadResponse(wire.NewBeadsResponse([]wire.Bead{b1}))
	}}
	fb := &fakeFeedback{}

	remaining, err := RequestMissingParents(chain, ranker, sender, fb, []chainhash.Hash{b1.BeadHash()})
	require.NoError(t, err)
	require.Nil(t, remaining)
	require.Equal(t, 2, chain.BeadCount())
	require.Equal(t, []FeedbackKind{FeedbackBeadAdded}, fb.events)
}
