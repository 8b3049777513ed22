// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the parameters for running a braidpool node
// against a particular share-chain network: its wire magic, bootstrap
// peers, and the genesis beads every node on the network must agree on.
package chaincfg

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// Checkpoint identifies a bead hash a node may trust without independently
// validating its full ancestry, used to speed up initial sync against a
// known-good point in the share chain.
type Checkpoint struct {
	BeadHash chainhash.Hash
	Note     string
}

// DNSSeed identifies a DNS seed used to discover bootstrap peers.
type DNSSeed struct {
	Host string
}

// String returns the hostname of the DNS seed in human-readable form.
func (d DNSSeed) String() string {
	return d.Host
}

// Params defines a braidpool share-chain network by its parameters. These
// differentiate one network's beads, peers, and genesis set from another's;
// difficulty retargeting policy and block-template synthesis are out of
// scope (delegated to the full node and miner-facing job manager
// respectively), so Params carries no retarget schedule.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the magic value used to identify the network on the wire.
	Net wire.BraidNet

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds lists seeds used to discover bootstrap peers.
	DNSSeeds []DNSSeed

	// GenesisBeads are the hard-coded beads every node seeds its braid
	// with via Braid.New; they form cohort 0 and the initial tip set.
	GenesisBeads []wire.Bead

	// MinTarget is the network-wide floor a bead's weak_target must be at
	// least as hard as (spec invariant: weak_target <= min_target in
	// difficulty terms). The bead validator braidnoded installs on the
	// braid rejects beads that violate it; sharebuilder.Builder itself does
	// not check it.
	MinTarget wire.CompactTarget

	// Checkpoints are known-good bead hashes, oldest to newest.
	Checkpoints []Checkpoint
}

// MainNetParams defines the network parameters for the production
// braidpool share-chain network. GenesisBeads is empty here, and
// internal/braidnodecfg has no option that sets it, so a mainnet node starts
// with an empty braid and the first parentless bead it extends becomes its
// genesis.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "18555",
	DNSSeeds: []DNSSeed{
		{Host: "seed1.braidpool.net"},
		{Host: "seed2.braidpool.net"},
	},
	MinTarget:   wire.CompactTarget(0x1e0fffff),
	Checkpoints: []Checkpoint{},
}

// TestNetParams defines the network parameters for the braidpool test
// network.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         wire.TestNet,
	DefaultPort: "18556",
	DNSSeeds: []DNSSeed{
		{Host: "testnet-seed.braidpool.net"},
	},
	MinTarget:   wire.CompactTarget(0x1f0fffff),
	Checkpoints: []Checkpoint{},
}

// RegTestParams defines the network parameters for a local regression-test
// network: no DNS seeds, an easy MinTarget, and genesis beads supplied
// entirely by the caller (typically a single synthetic genesis bead).
var RegTestParams = Params{
	Name:        "regtest",
	Net:         wire.RegTest,
	DefaultPort: "18557",
	MinTarget:   wire.CompactTarget(0x207fffff),
	Checkpoints: []Checkpoint{},
}

var (
	// ErrDuplicateNet describes an error where the parameters for a
	// braidpool network could not be registered because the network
	// magic is already registered.
	ErrDuplicateNet = errors.New("duplicate braidpool network")

	// ErrUnknownNet describes a lookup for a network magic that has not
	// been registered.
	ErrUnknownNet = errors.New("unknown braidpool network")
)

var registeredNets = make(map[wire.BraidNet]*Params)

// Register registers the network parameters for a braidpool network so
// library code can look them up by magic value. Returns ErrDuplicateNet if
// the network is already registered.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = params
	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error. This should only be called from package init
// functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// ParamsForNet returns the registered Params for a given network magic, or
// ErrUnknownNet if no network with that magic has been registered.
func ParamsForNet(net wire.BraidNet) (*Params, error) {
	p, ok := registeredNets[net]
	if !ok {
		return nil, ErrUnknownNet
	}
	return p, nil
}

func init() {
	mustRegister(&MainNetParams)
	mustRegister(&TestNetParams)
	mustRegister(&RegTestParams)
}
