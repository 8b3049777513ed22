// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package propagation implements the announce-on-accept gossip policy and
// peer-score bookkeeping of spec §4.5.
package propagation

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	initialScore            = 100.0
	initialPenaltyMultiplier = 0.01
	evictionLatencyCeiling  = 2 * time.Second
	evictionIdleCeiling     = 5 * time.Minute
)

// PeerInfo is the per-peer bookkeeping record maintained by the
// coordinator: connection shape, scoring state, and the derived geographic
// group used for propagation diversity.
type PeerInfo struct {
	PeerID  string
	Inbound bool

	Connected      bool
	LastMessageAt  time.Time
	Latency        time.Duration
	HasLatency     bool

	Score              float64
	ScorePenaltyMult   float64
	GeoGroup           string
}

// newPeerInfo creates a PeerInfo in its initial state: score 100, penalty
// multiplier 0.01, connected, last-message-time now.
func newPeerInfo(peerID string, inbound bool, remoteAddr string) *PeerInfo {
	return &PeerInfo{
		PeerID:           peerID,
		Inbound:          inbound,
		Connected:        true,
		LastMessageAt:    time.Now(),
		Score:            initialScore,
		ScorePenaltyMult: initialPenaltyMultiplier,
		GeoGroup:         geoGroup(remoteAddr),
	}
}

// geoGroup derives a coarse geographic/network group identifier from a
// remote address: the first two octets of an IPv4 address, or the first
// two hextets of an IPv6 address, mirroring Bitcoin's netgroup idea at a
// much cheaper cost. An address that doesn't parse yields the empty group,
// which top-k selection treats as "no diversity information".
func geoGroup(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("v4-%d.%d", v4[0], v4[1])
	}
	v6 := ip.To16()
	if v6 == nil {
		return ""
	}
	seg0 := binary.BigEndian.Uint16(v6[0:2])
	seg1 := binary.BigEndian.Uint16(v6[2:4])
	return fmt.Sprintf("v6-%x:%x", seg0, seg1)
}
