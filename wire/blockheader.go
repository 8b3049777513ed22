// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HeaderSize is the serialized size, in bytes, of a BlockHeader: the same
// 80-byte layout as a Bitcoin block header.
const HeaderSize = 80

// CompactTarget is Bitcoin's compact ("nBits") representation of a PoW
// target: a one-byte exponent and a three-byte mantissa packed into a
// uint32. Lower values (under the monotone compact ordering used by
// CompactLess) mean a harder target.
type CompactTarget uint32

// BlockHeader is the 80-byte Bitcoin-style header every bead commits to.
// Its double-SHA256 is the bead's identity (BeadHash).
type BlockHeader struct {
	// Version is the block version; the share-building pipeline (§4.3)
	// sets it after merging the miner's rolled bits under the job's
	// version-rolling mask.
	Version int32

	// PrevBlock is the hash of the previous block in the underlying
	// Bitcoin chain this bead's candidate descends from. Not to be
	// confused with the bead's braid parents, which live in
	// CommittedMetadata.
	PrevBlock chainhash.Hash

	// MerkleRoot is the root of the candidate block's transaction
	// merkle tree.
	MerkleRoot chainhash.Hash

	// Timestamp is the miner-supplied time, seconds since the epoch.
	Timestamp uint32

	// Bits is the compact target the miner claims to satisfy.
	Bits CompactTarget

	// Nonce is the miner's block-header nonce.
	Nonce uint32
}

// Serialize writes the canonical 80-byte encoding of the header.
func (h *BlockHeader) Serialize() []byte {
	buf := make([]byte, 0, HeaderSize)
	var tmp [4]byte

	binary.LittleEndian.PutUint32(tmp[:], uint32(h.Version))
	buf = append(buf, tmp[:]...)
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	binary.LittleEndian.PutUint32(tmp[:], h.Timestamp)
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint32(tmp[:], uint32(h.Bits))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint32(tmp[:], h.Nonce)
	buf = append(buf, tmp[:]...)

	return buf
}

// DeserializeBlockHeader parses an 80-byte canonical header.
func DeserializeBlockHeader(b []byte) (*BlockHeader, error) {
	if len(b) != HeaderSize {
		return nil, newErrDecode(0, "block header must be %d bytes, got %d", HeaderSize, len(b))
	}
	h := &BlockHeader{}
	h.Version = int32(binary.LittleEndian.Uint32(b[0:4]))
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(b[68:72])
	h.Bits = CompactTarget(binary.LittleEndian.Uint32(b[72:76]))
	h.Nonce = binary.LittleEndian.Uint32(b[76:80])
	return h, nil
}

// BlockHash returns the double-SHA256 of the serialized header, network
// byte order (i.e. the raw digest, not the reversed display form). This is
// the bead's BeadHash.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashH(h.Serialize())
}

// writeCompactTarget encodes a CompactTarget as the 4-byte big-endian hex
// string the codec rules specify, length-prefixed like any other string.
func writeCompactTarget(w *bytes.Buffer, t CompactTarget) error {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], uint32(t))
	return writeVarString(w, hex.EncodeToString(raw[:]))
}

func readCompactTarget(c *countingReader) (CompactTarget, error) {
	s, err := readVarString(c, 16)
	if err != nil {
		return 0, err
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 4 {
		return 0, newErrDecode(c.pos, "invalid compact target hex %q", s)
	}
	return CompactTarget(binary.BigEndian.Uint32(raw)), nil
}
