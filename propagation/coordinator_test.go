// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package propagation

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/syncproto"
	"github.com/braidpool/node/wire"
)

type fakePublisher struct {
	published [][]byte
}

func (p *fakePublisher) Publish(payload []byte) error {
	p.published = append(p.published, payload)
	return nil
}

func testBead(nonce uint32) wire.Bead {
	return wire.Bead{Header: wire.BlockHeader{Version: 1, Nonce: nonce}}
}

func TestFeedbackBeadAddedIncreasesScore(t *testing.T) {
	chain := braid.NewSafe(nil)
	pub := &fakePublisher{}
	c := NewCoordinator(chain, pub, 125, -100, 0.1)

	c.PeerConnected("peer-a", "203.0.113.7:4001", false)
	c.Feedback("peer-a", syncproto.FeedbackBeadAdded)

	p, ok := c.Peer("peer-a")
	require.True(t, ok)
	require.Equal(t, 101.0, p.Score)
}

func TestFeedbackInvalidBeadAppliesDoublingPenalty(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 125, -100, 0.1)
	c.PeerConnected("peer-a", "203.0.113.7:4001", false)

	c.Feedback("peer-a", syncproto.FeedbackInvalidBead)
	p, _ := c.Peer("peer-a")
	require.InDelta(t, 99.0, p.Score, 1e-9) // 100 - 100*0.01
	require.InDelta(t, 0.02, p.ScorePenaltyMult, 1e-9)

	c.Feedback("peer-a", syncproto.FeedbackInvalidBead)
	p, _ = c.Peer("peer-a")
	require.InDelta(t, 99.0-99.0*0.02, p.Score, 1e-9)
	require.InDelta(t, 0.04, p.ScorePenaltyMult, 1e-9)
}

func TestFeedbackInvalidBeadClampsToScoreFloor(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 125, 50, 0.1)
	c.PeerConnected("peer-a", "203.0.113.7:4001", false)

	for i := 0; i < 10; i++ {
		c.Feedback("peer-a", syncproto.FeedbackInvalidBead)
	}

	p, _ := c.Peer("peer-a")
	require.Equal(t, 50.0, p.Score)
}

func TestTopPeersDiversityFirst(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 125, -100, 0.1)

	c.PeerConnected("peer-a", "203.0.113.1:4001", false)
	c.PeerConnected("peer-b", "203.0.113.2:4001", false) // same /16 group as peer-a
	c.PeerConnected("peer-c", "198.51.100.9:4001", false) // distinct group

	c.Feedback("peer-b", syncproto.FeedbackBeadAdded) // peer-b now outranks peer-a within its group
	c.Feedback("peer-b", syncproto.FeedbackBeadAdded)
	c.Feedback("peer-c", syncproto.FeedbackBeadAdded)

	top := c.TopPeers(2)
	require.Len(t, top, 2)
	require.Contains(t, top, "peer-c") // distinct geo group always gets a slot
}

func TestEvictionCandidatesOnlyOverLimit(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 1, -100, 0.1)

	c.PeerConnected("peer-a", "203.0.113.1:4001", false)
	c.UpdateLatency("peer-a", 3*time.Second) // above the 2s latency ceiling

	require.Empty(t, c.EvictionCandidates()) // only one peer, at the limit

	c.PeerConnected("peer-b", "203.0.113.2:4001", false)
	candidates := c.EvictionCandidates()
	require.NotEmpty(t, candidates)
}

func TestTickAppliesIdleDecay(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 125, -100, 1.0)
	c.PeerConnected("peer-a", "203.0.113.1:4001", false)

	p, _ := c.Peer("peer-a")
	p.LastMessageAt = time.Now().Add(-10 * time.Second)
	c.mu.Lock()
	c.peers["peer-a"] = &p
	c.mu.Unlock()

	c.Tick()
	after, _ := c.Peer("peer-a")
	require.Less(t, after.Score, 100.0)
}

func TestTickIdleDecayClampsToScoreFloor(t *testing.T) {
	chain := braid.NewSafe(nil)
	c := NewCoordinator(chain, &fakePublisher{}, 125, 50, 1.0)
	c.PeerConnected("peer-a", "203.0.113.1:4001", false)

	p, _ := c.Peer("peer-a")
	p.LastMessageAt = time.Now().Add(-1000 * time.Second)
	c.mu.Lock()
	c.peers["peer-a"] = &p
	c.mu.Unlock()

	c.Tick()
	after, _ := c.Peer("peer-a")
	require.Equal(t, 50.0, after.Score)
}

func TestHandleGossipBeadExtendsAndScores(t *testing.T) {
	g := testBead(0)
	chain := braid.NewSafe([]wire.Bead{g})
	c := NewCoordinator(chain, &fakePublisher{}, 125, -100, 0.1)
	c.PeerConnected("peer-a", "203.0.113.1:4001", true)

	b1 := wire.Bead{
		Header: wire.BlockHeader{Version: 1, Nonce: 1},
		Committed: wire.CommittedMetadata{
			Parents:              []chainhash.Hash{g.BeadHash()},
			ParentBeadTimestamps: []uint32{0},
		},
	}
	payload, err := wire.EncodeBead(&b1)
	require.NoError(t, err)

	status, err := c.HandleGossipBead("peer-a", payload)
	require.NoError(t, err)
	require.Equal(t, braid.BeadAdded, status)

	p, _ := c.Peer("peer-a")
	require.Equal(t, 101.0, p.Score)
}
