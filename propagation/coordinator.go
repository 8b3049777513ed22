// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package propagation

import (
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/lru"

	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/syncproto"
	"github.com/braidpool/node/wire"
)

// seenCacheLimit bounds how many recently-gossiped bead hashes the
// coordinator remembers for dedup, independent of the braid's own
// DagAlreadyContainsBead check: this lets a repeat gossip delivery short-
// circuit before ever taking the braid's writer lock.
const seenCacheLimit = 8192

// Publisher broadcasts a bead's encoded bytes to the gossip topic exactly
// once. The overlay, not this package, fans it out to peers.
type Publisher interface {
	Publish(payload []byte) error
}

// Coordinator implements the propagation policy of spec §4.5: per-peer
// scoring, announce-on-accept gossip, top-k selection for outbound sync
// requests, and idle/score-based eviction.
type Coordinator struct {
	mu    sync.Mutex
	peers map[string]*PeerInfo

	maxPeers        int
	minScore        float64
	idlePenaltyRate float64

	chain     *braid.SafeBraid
	publisher Publisher
	seen      *lru.Cache
}

// NewCoordinator creates a Coordinator bound to chain (for gossip decode)
// and publisher (for broadcast).
func NewCoordinator(chain *braid.SafeBraid, publisher Publisher, maxPeers int, minScore, idlePenaltyRate float64) *Coordinator {
	return &Coordinator{
		peers:           make(map[string]*PeerInfo),
		maxPeers:        maxPeers,
		minScore:        minScore,
		idlePenaltyRate: idlePenaltyRate,
		chain:           chain,
		publisher:       publisher,
		seen:            lru.NewCache(seenCacheLimit),
	}
}

// PeerConnected registers a newly connected peer.
func (c *Coordinator) PeerConnected(peerID string, remoteAddr string, inbound bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.peers[peerID]; ok {
		existing.Connected = true
		existing.Inbound = inbound
		existing.LastMessageAt = time.Now()
		if remoteAddr != "" {
			existing.GeoGroup = geoGroup(remoteAddr)
		}
		return
	}
	c.peers[peerID] = newPeerInfo(peerID, inbound, remoteAddr)
}

// PeerDisconnected marks a peer as no longer connected, keeping its score
// history around (spec does not call for persistent reputation across
// restarts, but within a running process a reconnecting peer keeps its
// standing).
func (c *Coordinator) PeerDisconnected(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[peerID]; ok {
		p.Connected = false
	}
}

// UpdateLatency records a fresh round-trip-time sample for peerID.
func (c *Coordinator) UpdateLatency(peerID string, rtt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[peerID]; ok {
		p.Latency = rtt
		p.HasLatency = true
	}
}

// AnnounceLocal serializes a freshly accepted bead and publishes it once,
// whether it was locally mined (via C3) or accepted from a peer (via C4).
// Gossip policy is announce-on-accept only: a bead received over gossip is
// never rebroadcast here, since the overlay's topic already fans it out.
func (c *Coordinator) AnnounceLocal(bead *wire.Bead) error {
	encoded, err := wire.EncodeBead(bead)
	if err != nil {
		return err
	}
	return c.publisher.Publish(encoded)
}

// HandleGossipBead decodes an incoming gossip payload, extends the local
// braid, and applies score feedback to the delivering peer.
func (c *Coordinator) HandleGossipBead(peerID string, payload []byte) (braid.AddBeadStatus, error) {
	c.touch(peerID)

	bead, err := wire.DecodeBead(payload)
	if err != nil {
		log.Warnf("malformed gossip bead from %s: %v", peerID, err)
		return braid.InvalidBead, err
	}

	hash := bead.BeadHash()
	if c.seen.Contains(hash) {
		return braid.DagAlreadyContainsBead, nil
	}
	c.seen.Add(hash)

	status := c.chain.Extend(*bead)
	switch status {
	case braid.BeadAdded:
		c.Feedback(peerID, syncproto.FeedbackBeadAdded)
	case braid.InvalidBead:
		c.Feedback(peerID, syncproto.FeedbackInvalidBead)
	case braid.DagAlreadyContainsBead, braid.ParentsNotYetReceived:
		// Neutral outcomes per spec §4.5 point 4.
	}
	return status, nil
}

func (c *Coordinator) touch(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[peerID]; ok {
		p.LastMessageAt = time.Now()
	}
}

// Feedback applies the score adjustment for one sync or gossip outcome
// (spec §4.5 point 4 and §4.4's response-handling table funnel through
// here): BeadAdded is +1.0; InvalidBead applies the doubling penalty
// multiplier; every other outcome is neutral.
func (c *Coordinator) Feedback(peerID string, kind syncproto.FeedbackKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[peerID]
	if !ok {
		return
	}

	switch kind {
	case syncproto.FeedbackBeadAdded:
		p.Score += 1.0
	case syncproto.FeedbackInvalidBead:
		p.Score -= p.Score * p.ScorePenaltyMult
		p.ScorePenaltyMult *= 2
		if p.Score < c.minScore {
			p.Score = c.minScore
		}
	}
}

// TopPeers implements syncproto.PeerRanker: the top-k connected peers by
// score, with a diversity-first pass that fills one slot per distinct geo
// group before falling back to pure score rank for the rest.
func (c *Coordinator) TopPeers(k int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topPeersLocked(k)
}

func (c *Coordinator) topPeersLocked(k int) []string {
	if k <= 0 {
		return nil
	}

	ranked := c.connectedSortedByScoreLocked()

	selected := make([]string, 0, k)
	seenGroups := make(map[string]bool)

	for _, p := range ranked {
		if len(selected) >= k {
			break
		}
		if p.GeoGroup == "" {
			selected = append(selected, p.PeerID)
			continue
		}
		if !seenGroups[p.GeoGroup] {
			selected = append(selected, p.PeerID)
			seenGroups[p.GeoGroup] = true
		}
	}

	if len(selected) < k {
		already := make(map[string]bool, len(selected))
		for _, id := range selected {
			already[id] = true
		}
		for _, p := range ranked {
			if len(selected) >= k {
				break
			}
			if !already[p.PeerID] {
				selected = append(selected, p.PeerID)
				already[p.PeerID] = true
			}
		}
	}

	return selected
}

func (c *Coordinator) connectedSortedByScoreLocked() []*PeerInfo {
	ranked := make([]*PeerInfo, 0, len(c.peers))
	for _, p := range c.peers {
		if p.Connected {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// EvictionCandidates returns connected peers with score below the floor,
// latency above 2s, or idle beyond 5 minutes, lowest score first, for use
// only when the connection count exceeds maxPeers (spec §4.5 point 6).
func (c *Coordinator) EvictionCandidates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	connected := 0
	for _, p := range c.peers {
		if p.Connected {
			connected++
		}
	}
	if connected <= c.maxPeers {
		return nil
	}

	now := time.Now()
	var candidates []*PeerInfo
	for _, p := range c.peers {
		if !p.Connected {
			continue
		}
		if p.Score < c.minScore {
			candidates = append(candidates, p)
			continue
		}
		if p.HasLatency && p.Latency > evictionLatencyCeiling {
			candidates = append(candidates, p)
			continue
		}
		if now.Sub(p.LastMessageAt) > evictionIdleCeiling {
			candidates = append(candidates, p)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score < candidates[j].Score })

	out := make([]string, len(candidates))
	for i, p := range candidates {
		out[i] = p.PeerID
	}
	return out
}

// Tick runs the periodic maintenance pass: idle score decay proportional
// to idle time, followed by eviction if over the peer limit (spec §4.5
// point 7). It returns the peers selected for eviction so the caller can
// actually tear down their connections; this function only adjusts
// bookkeeping.
func (c *Coordinator) Tick() []string {
	c.mu.Lock()
	now := time.Now()
	for _, p := range c.peers {
		if !p.Connected {
			continue
		}
		idle := now.Sub(p.LastMessageAt).Seconds()
		if idle > 0 {
			p.Score -= idle * c.idlePenaltyRate
			if p.Score < c.minScore {
				p.Score = c.minScore
			}
		}
	}
	c.mu.Unlock()

	return c.EvictionCandidates()
}

// Peer returns a snapshot of one peer's bookkeeping, for admin/metrics use.
func (c *Coordinator) Peer(peerID string) (PeerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[peerID]
	if !ok {
		return PeerInfo{}, false
	}
	return *p, true
}
