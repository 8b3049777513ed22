// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// CompressedPubKeySize is the length of a compressed secp256k1 public key.
const CompressedPubKeySize = 33

// Signature is a DER-encoded ECDSA signature plus its sighash flag, the
// wire form specified for UncommittedMetadata.Signature.
type Signature struct {
	DER         []byte
	SighashFlag byte
}

// CommittedMetadata is everything about a bead that is fixed at mining time
// and whose encoding (together with the BlockHeader) is what the miner's
// signature covers.
type CommittedMetadata struct {
	TransactionIDs       []chainhash.Hash
	Parents              []chainhash.Hash
	ParentBeadTimestamps []uint32
	PayoutAddress        string
	StartTimestamp       uint32
	CommPubKey           [CompressedPubKeySize]byte
	MinTarget            CompactTarget
	WeakTarget           CompactTarget
	MinerIP              string
}

// UncommittedMetadata is bead metadata that may be altered without
// changing the bead's identity (BeadHash or signed bytes).
type UncommittedMetadata struct {
	ExtraNonce        int32
	BroadcastTimestamp uint32
	Signature         Signature
}

// Bead is the atomic unit of the share chain: an immutable header plus
// committed and uncommitted metadata.
type Bead struct {
	Header      BlockHeader
	Committed   CommittedMetadata
	Uncommitted UncommittedMetadata
}

// BeadHash returns the bead's identity hash, the double-SHA256 of its
// block header.
func (b *Bead) BeadHash() chainhash.Hash {
	return b.Header.BlockHash()
}

// NormalizeParents sorts Parents into ascending byte order, permuting
// ParentBeadTimestamps so each timestamp stays paired with its parent.
// The bead builder, Braid.Extend, EncodeBead and IdentityBytes normalize
// before treating a CommittedMetadata's parent/timestamp pair as canonical;
// DecodeBead instead rejects parent sets that are not already in ascending
// order. This is the form the codec round-trips and the only one EncodeBead
// will ever produce.
func (cm *CommittedMetadata) NormalizeParents() {
	n := len(cm.Parents)
	if n != len(cm.ParentBeadTimestamps) {
		// Caller violated the pairing invariant; nothing safe to sort.
		return
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(cm.Parents[idx[i]][:], cm.Parents[idx[j]][:]) < 0
	})
	parents := make([]chainhash.Hash, n)
	timestamps := make([]uint32, n)
	for newPos, oldPos := range idx {
		parents[newPos] = cm.Parents[oldPos]
		timestamps[newPos] = cm.ParentBeadTimestamps[oldPos]
	}
	cm.Parents = parents
	cm.ParentBeadTimestamps = timestamps
}

// IdentityBytes returns the canonical encoding of the header plus committed
// metadata: the exact byte string a bead's signature is computed over and
// verified against (spec §3 invariant 4).
func (b *Bead) IdentityBytes() []byte {
	b.Committed.NormalizeParents()

	var buf bytes.Buffer
	buf.Write(b.Header.Serialize())
	encodeCommittedMetadata(&buf, &b.Committed)
	return buf.Bytes()
}

// EncodeBead writes the canonical serialization of a bead. The committed
// metadata's parents are normalized (sorted ascending, in lockstep with
// their timestamps) before encoding so Encode always emits the one
// canonical form regardless of construction order.
func EncodeBead(b *Bead) ([]byte, error) {
	b.Committed.NormalizeParents()

	var buf bytes.Buffer
	buf.Write(b.Header.Serialize())
	encodeCommittedMetadata(&buf, &b.Committed)
	if err := encodeUncommittedMetadata(&buf, &b.Uncommitted); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBead parses a canonically-encoded bead.
func DecodeBead(data []byte) (*Bead, error) {
	if len(data) < HeaderSize {
		return nil, newErrDecode(0, "bead shorter than header size")
	}
	header, err := DeserializeBlockHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	c := newCountingReader(data[HeaderSize:])
	c.pos = HeaderSize

	committed, err := decodeCommittedMetadata(c)
	if err != nil {
		return nil, err
	}
	uncommitted, err := decodeUncommittedMetadata(c)
	if err != nil {
		return nil, err
	}
	return &Bead{Header: *header, Committed: *committed, Uncommitted: *uncommitted}, nil
}

func encodeCommittedMetadata(w *bytes.Buffer, cm *CommittedMetadata) {
	writeUint64(w, uint64(len(cm.TransactionIDs)))
	for _, txid := range cm.TransactionIDs {
		w.Write(txid[:])
	}

	writeHashSet(w, cm.Parents)

	// ParentBeadTimestamps must already be aligned to the sorted Parents
	// order; NormalizeParents guarantees this for any bead that passed
	// through the builder or a prior Decode.
	writeUint64(w, uint64(len(cm.ParentBeadTimestamps)))
	for _, ts := range cm.ParentBeadTimestamps {
		writeUint32(w, ts)
	}

	writeVarString(w, cm.PayoutAddress)
	writeUint32(w, cm.StartTimestamp)
	w.Write(cm.CommPubKey[:])
	writeCompactTarget(w, cm.MinTarget)
	writeCompactTarget(w, cm.WeakTarget)
	writeVarString(w, cm.MinerIP)
}

func decodeCommittedMetadata(c *countingReader) (*CommittedMetadata, error) {
	cm := &CommittedMetadata{}

	nTx, err := readUint64(c)
	if err != nil {
		return nil, err
	}
	if nTx > MaxSetLength {
		return nil, newErrDecode(c.pos, "transaction_ids length %d exceeds cap", nTx)
	}
	cm.TransactionIDs = make([]chainhash.Hash, nTx)
	for i := uint64(0); i < nTx; i++ {
		b, err := c.readFull(chainhash.HashSize)
		if err != nil {
			return nil, err
		}
		copy(cm.TransactionIDs[i][:], b)
	}

	parents, err := readHashSet(c)
	if err != nil {
		return nil, err
	}
	cm.Parents = parents

	nTs, err := readUint64(c)
	if err != nil {
		return nil, err
	}
	if nTs != uint64(len(parents)) {
		return nil, newErrDecode(c.pos, "parent_bead_timestamps length %d != parents length %d", nTs, len(parents))
	}
	cm.ParentBeadTimestamps = make([]uint32, nTs)
	for i := uint64(0); i < nTs; i++ {
		ts, err := readUint32(c)
		if err != nil {
			return nil, err
		}
		cm.ParentBeadTimestamps[i] = ts
	}

	payout, err := readVarString(c, MaxFieldLength)
	if err != nil {
		return nil, err
	}
	cm.PayoutAddress = payout

	start, err := readUint32(c)
	if err != nil {
		return nil, err
	}
	cm.StartTimestamp = start

	pubkey, err := c.readFull(CompressedPubKeySize)
	if err != nil {
		return nil, err
	}
	copy(cm.CommPubKey[:], pubkey)

	minTarget, err := readCompactTarget(c)
	if err != nil {
		return nil, err
	}
	cm.MinTarget = minTarget

	weakTarget, err := readCompactTarget(c)
	if err != nil {
		return nil, err
	}
	cm.WeakTarget = weakTarget

	minerIP, err := readVarString(c, MaxFieldLength)
	if err != nil {
		return nil, err
	}
	cm.MinerIP = minerIP

	return cm, nil
}

func encodeUncommittedMetadata(w *bytes.Buffer, um *UncommittedMetadata) error {
	writeInt32(w, um.ExtraNonce)
	writeUint32(w, um.BroadcastTimestamp)
	return writeSignature(w, um.Signature)
}

func decodeUncommittedMetadata(c *countingReader) (*UncommittedMetadata, error) {
	extraNonce, err := readInt32(c)
	if err != nil {
		return nil, err
	}
	broadcast, err := readUint32(c)
	if err != nil {
		return nil, err
	}
	sig, err := readSignature(c)
	if err != nil {
		return nil, err
	}
	return &UncommittedMetadata{
		ExtraNonce:         extraNonce,
		BroadcastTimestamp: broadcast,
		Signature:          sig,
	}, nil
}

// writeSignature encodes a Signature as ASCII hex of DER‖sighash-flag,
// length-prefixed as a string, per the codec rules.
func writeSignature(w *bytes.Buffer, sig Signature) error {
	raw := make([]byte, 0, len(sig.DER)+1)
	raw = append(raw, sig.DER...)
	raw = append(raw, sig.SighashFlag)
	return writeVarString(w, hex.EncodeToString(raw))
}

func readSignature(c *countingReader) (Signature, error) {
	s, err := readVarString(c, MaxFieldLength)
	if err != nil {
		return Signature{}, err
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return Signature{}, newErrDecode(c.pos, "invalid signature hex %q", s)
	}
	return Signature{DER: raw[:len(raw)-1], SighashFlag: raw[len(raw)-1]}, nil
}
