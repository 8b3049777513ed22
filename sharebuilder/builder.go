// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sharebuilder

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/braidpool/node/blockchain"
	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/internal/braiderr"
	"github.com/braidpool/node/wire"
)

// MinerIdentity is the per-connection miner context the builder needs to
// populate a bead's committed/uncommitted metadata and sign it.
type MinerIdentity struct {
	PayoutAddress  string
	CommPubKey     [wire.CompressedPubKeySize]byte
	MinerIP        string
	ExtraNonce1    []byte
	StartTimestamp uint32
	SigningKey     *btcec.PrivateKey
}

// BlockSink is the external Bitcoin-node IPC sink that accepts a candidate
// meeting the network target. Builder.BuildShare calls it in its own
// goroutine: the spec requires this MUST NOT delay the bead pipeline.
type BlockSink func(block *wire.BlockHeader)

// Announcer hands a freshly accepted bead's encoding to the propagation
// coordinator (C5) for gossip.
type Announcer func(bead *wire.Bead, encoded []byte)

// Builder implements the share-submission pipeline of spec §4.3: turning a
// ShareSubmission plus its Job into a bead and extending the local braid.
type Builder struct {
	Chain         *braid.SafeBraid
	NetworkTarget wire.CompactTarget
	SubmitBlock   BlockSink
	Announce      Announcer
}

// BuildShare runs the nine-step pipeline described in spec §4.3 and
// returns the resulting Extend status. Only BeadAdded produces a non-nil
// bead; callers must not announce on any other status.
func (b *Builder) BuildShare(job Job, sub ShareSubmission, miner MinerIdentity) (braid.AddBeadStatus, *wire.Bead, error) {
	coinbase := make([]byte, 0, len(job.CoinbasePrefix)+len(miner.ExtraNonce1)+len(sub.ExtraNonce2)+len(job.CoinbaseSuffix))
	coinbase = append(coinbase, job.CoinbasePrefix...)
	coinbase = append(coinbase, miner.ExtraNonce1...)
	coinbase = append(coinbase, sub.ExtraNonce2...)
	coinbase = append(coinbase, job.CoinbaseSuffix...)
	coinbaseTxid := chainhash.DoubleHashH(coinbase)

	merkleRoot := blockchain.MerkleRootFromCoinbaseAndPath(coinbaseTxid, job.MerklePath)

	version := job.Version
	if job.VersionMask != nil && sub.VersionBits != nil {
		mask := *job.VersionMask
		if uint32(*sub.VersionBits)&^mask != 0 {
			return braid.InvalidBead, nil, braiderr.New(braiderr.ErrVersionMaskViolation,
				"rolled version bits outside agreed mask")
		}
		version = int32((uint32(job.Version) &^ mask) | (uint32(*sub.VersionBits) & mask))
	}

	header := wire.BlockHeader{
		Version:    version,
		PrevBlock:  job.PrevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  sub.Ntime,
		Bits:       job.Bits,
		Nonce:      sub.Nonce,
	}

	hash := header.BlockHash()
	if !blockchain.CheckProofOfWork(hash, job.WeakTarget) {
		return braid.InvalidBead, nil, braiderr.New(braiderr.ErrPoWFailure, "share does not meet weak target")
	}

	if blockchain.CheckProofOfWork(hash, b.NetworkTarget) && b.SubmitBlock != nil {
		go b.SubmitBlock(&header)
	}

	tips := b.Chain.Tips()
	parents := make([]chainhash.Hash, len(tips))
	copy(parents, tips)
	parentTimestamps := make([]uint32, len(parents))
	for i, parentHash := range parents {
		if parentBead, ok := b.Chain.GetBead(parentHash); ok {
			parentTimestamps[i] = parentBead.Committed.StartTimestamp
		}
	}

	committed := wire.CommittedMetadata{
		Parents:              parents,
		ParentBeadTimestamps: parentTimestamps,
		PayoutAddress:        miner.PayoutAddress,
		StartTimestamp:       miner.StartTimestamp,
		CommPubKey:           miner.CommPubKey,
		MinTarget:            job.MinTarget,
		WeakTarget:           job.WeakTarget,
		MinerIP:              miner.MinerIP,
	}
	committed.NormalizeParents()

	bead := wire.Bead{Header: header, Committed: committed}

	sig := Sign(miner.SigningKey, &bead)
	bead.Uncommitted = wire.UncommittedMetadata{
		ExtraNonce:         extraNonce2Value(sub.ExtraNonce2),
		BroadcastTimestamp: uint32(time.Now().Unix()),
		Signature:          sig,
	}

	status := b.Chain.Extend(bead)
	switch status {
	case braid.BeadAdded:
		encoded, err := wire.EncodeBead(&bead)
		if err != nil {
			return status, &bead, err
		}
		if b.Announce != nil {
			b.Announce(&bead, encoded)
		}
		return status, &bead, nil
	case braid.ParentsNotYetReceived:
		// Unreachable on this path: parents were snapshotted from live
		// local tips a moment ago. If it happens, the braid and this
		// builder have diverged on tip state, which is a severe
		// invariant violation.
		log.Criticalf("builder-submitted bead %s got ParentsNotYetReceived: tip snapshot raced a concurrent extend", bead.BeadHash())
		return status, nil, braiderr.New(braiderr.ErrLogicError, "builder tip snapshot diverged from braid state")
	default:
		return status, nil, nil
	}
}

// extraNonce2Value decodes a submitted extranonce2 byte string into the
// 32-bit nonce-complement value it represents: the trailing 4 bytes,
// big-endian, zero-padded on the left if the field is shorter. Stratum
// extranonce2 fields are miner-chosen counters of varying width, but the
// bead's committed extra_nonce is a fixed-width i32, so only the low 32
// bits of whatever width the miner used can be carried.
func extraNonce2Value(b []byte) int32 {
	var buf [4]byte
	if len(b) >= 4 {
		copy(buf[:], b[len(b)-4:])
	} else {
		copy(buf[4-len(b):], b)
	}
	return int32(binary.BigEndian.Uint32(buf[:]))
}
