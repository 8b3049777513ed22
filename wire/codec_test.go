// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func genHash(t *rapid.T, label string) chainhash.Hash {
	var h chainhash.Hash
	b := rapid.SliceOfN(rapid.Byte(), chainhash.HashSize, chainhash.HashSize).Draw(t, label)
	copy(h[:], b)
	return h
}

// genDistinctHashes draws n hashes that are guaranteed pairwise distinct by
// forcing their last 4 bytes to a unique per-index suffix over an otherwise
// random base: encodeCommittedMetadata's Parents field is a "hash set" field
// and readHashSet rejects any decoding whose elements aren't in strict
// ascending order, which also rejects duplicates, so round-trip generators
// must never produce two equal parent hashes.
func genDistinctHashes(t *rapid.T, n int, label string) []chainhash.Hash {
	base := rapid.SliceOfN(rapid.Byte(), chainhash.HashSize, chainhash.HashSize).Draw(t, label+"_base")
	out := make([]chainhash.Hash, n)
	for i := 0; i < n; i++ {
		var h chainhash.Hash
		copy(h[:], base)
		h[chainhash.HashSize-4] = byte(i >> 24)
		h[chainhash.HashSize-3] = byte(i >> 16)
		h[chainhash.HashSize-2] = byte(i >> 8)
		h[chainhash.HashSize-1] = byte(i)
		out[i] = h
	}
	return out
}

func genSmallString(t *rapid.T, label string) string {
	n := rapid.IntRange(0, 12).Draw(t, label+"_len")
	b := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, label+"_bytes")
	return hex.EncodeToString(b)
}

func genSignature(t *rapid.T) Signature {
	n := rapid.IntRange(1, 70).Draw(t, "sig_len")
	der := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "sig_der")
	flag := rapid.Byte().Draw(t, "sig_flag")
	return Signature{DER: der, SighashFlag: flag}
}

func genBlockHeader(t *rapid.T) BlockHeader {
	return BlockHeader{
		Version:    rapid.Int32().Draw(t, "version"),
		PrevBlock:  genHash(t, "prev_block"),
		MerkleRoot: genHash(t, "merkle_root"),
		Timestamp:  rapid.Uint32().Draw(t, "timestamp"),
		Bits:       CompactTarget(rapid.Uint32().Draw(t, "bits")),
		Nonce:      rapid.Uint32().Draw(t, "nonce"),
	}
}

func genBead(t *rapid.T) Bead {
	nTx := rapid.IntRange(0, 3).Draw(t, "n_tx")
	txids := make([]chainhash.Hash, nTx)
	for i := range txids {
		txids[i] = genHash(t, "txid")
	}

	nParents := rapid.IntRange(0, 4).Draw(t, "n_parents")
	parents := genDistinctHashes(t, nParents, "parent")
	timestamps := make([]uint32, nParents)
	for i := range timestamps {
		timestamps[i] = rapid.Uint32().Draw(t, "parent_ts")
	}

	var pubKey [CompressedPubKeySize]byte
	copy(pubKey[:], rapid.SliceOfN(rapid.Byte(), CompressedPubKeySize, CompressedPubKeySize).Draw(t, "comm_pubkey"))

	committed := CommittedMetadata{
		TransactionIDs:       txids,
		Parents:              parents,
		ParentBeadTimestamps: timestamps,
		PayoutAddress:        genSmallString(t, "payout"),
		StartTimestamp:       rapid.Uint32().Draw(t, "start_ts"),
		CommPubKey:           pubKey,
		MinTarget:            CompactTarget(rapid.Uint32().Draw(t, "min_target")),
		WeakTarget:           CompactTarget(rapid.Uint32().Draw(t, "weak_target")),
		MinerIP:              genSmallString(t, "miner_ip"),
	}

	uncommitted := UncommittedMetadata{
		ExtraNonce:         rapid.Int32().Draw(t, "extra_nonce"),
		BroadcastTimestamp: rapid.Uint32().Draw(t, "broadcast_ts"),
		Signature:          genSignature(t),
	}

	return Bead{Header: genBlockHeader(t), Committed: committed, Uncommitted: uncommitted}
}

// TestBeadRoundTrip is the property-8 / Scenario F codec invariant: every
// bead, after normalization, survives an encode/decode cycle with identical
// structure, and the parents it carries come back in strict ascending byte
// order regardless of construction order.
func TestBeadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bead := genBead(t)
		bead.Committed.NormalizeParents()

		encoded, err := EncodeBead(&bead)
		require.NoError(t, err)

		decoded, err := DecodeBead(encoded)
		require.NoError(t, err)
		require.Equal(t, bead, *decoded)

		for i := 1; i < len(decoded.Committed.Parents); i++ {
			prev := decoded.Committed.Parents[i-1]
			cur := decoded.Committed.Parents[i]
			require.True(t, compareHashes(prev, cur) < 0)
		}

		// Idempotence: encoding the decoded bead again reproduces the same
		// bytes.
		reencoded, err := EncodeBead(decoded)
		require.NoError(t, err)
		require.Equal(t, encoded, reencoded)
	})
}

func compareHashes(a, b chainhash.Hash) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

func TestBeadRequestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]byte{ReqGetBeads, ReqGetTips, ReqGetGenesis, ReqGetAllBeads, ReqGetBeadsAfter}).Draw(t, "kind")

		var req BeadRequest
		switch kind {
		case ReqGetBeads:
			n := rapid.IntRange(0, 4).Draw(t, "n")
			req = NewGetBeadsRequest(genDistinctHashes(t, n, "get_beads"))
		case ReqGetTips:
			req = NewGetTipsRequest()
		case ReqGetGenesis:
			req = NewGetGenesisRequest()
		case ReqGetAllBeads:
			req = NewGetAllBeadsRequest()
		case ReqGetBeadsAfter:
			n := rapid.IntRange(0, 4).Draw(t, "n")
			req = NewGetBeadsAfterRequest(genDistinctHashes(t, n, "get_beads_after"))
		}

		encoded, err := EncodeBeadRequest(req)
		require.NoError(t, err)
		decoded, err := DecodeBeadRequest(encoded)
		require.NoError(t, err)
		require.Equal(t, req.Kind, decoded.Kind)
	})
}

func TestBeadResponseRoundTripBeads(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 3).Draw(t, "n")
		beads := make([]Bead, n)
		for i := range beads {
			b := genBead(t)
			b.Committed.NormalizeParents()
			beads[i] = b
		}

		resp := NewBeadsResponse(beads)
		encoded, err := EncodeBeadResponse(resp)
		require.NoError(t, err)
		decoded, err := DecodeBeadResponse(encoded)
		require.NoError(t, err)
		require.Equal(t, beads, decoded.Beads)
	})
}

func TestBeadResponseRoundTripTipsAndGenesis(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 4).Draw(t, "n")
		hashes := genDistinctHashes(t, n, "hashes")

		tipsResp := NewTipsResponse(hashes)
		encoded, err := EncodeBeadResponse(tipsResp)
		require.NoError(t, err)
		decoded, err := DecodeBeadResponse(encoded)
		require.NoError(t, err)
		require.Equal(t, hashes, decoded.TipHashes)

		genResp := NewGenesisResponse(hashes)
		encoded, err = EncodeBeadResponse(genResp)
		require.NoError(t, err)
		decoded, err = DecodeBeadResponse(encoded)
		require.NoError(t, err)
		require.Equal(t, hashes, decoded.GenesisHashes)
	})
}

func TestBeadResponseRoundTripError(t *testing.T) {
	cases := []BeadSyncError{
		ErrGenesisMismatch,
		NewOtherSyncError("bad request"),
	}
	for _, e := range cases {
		resp := NewErrorResponse(e)
		encoded, err := EncodeBeadResponse(resp)
		require.NoError(t, err)
		decoded, err := DecodeBeadResponse(encoded)
		require.NoError(t, err)
		require.Equal(t, e, decoded.Error)
	}
}

// TestDecodeBeadRejectsDuplicateParents exercises the duplicate-rejection
// half of the ascending-order invariant directly: a hand-crafted payload
// repeating one parent hash twice must fail to decode rather than silently
// accepting a non-canonical encoding.
func TestDecodeBeadRejectsDuplicateParents(t *testing.T) {
	var h chainhash.Hash
	h[0] = 0x01

	bead := Bead{
		Header: BlockHeader{Version: 1},
		Committed: CommittedMetadata{
			Parents:              []chainhash.Hash{h, h},
			ParentBeadTimestamps: []uint32{0, 0},
		},
		Uncommitted: UncommittedMetadata{Signature: Signature{DER: []byte{0x01}, SighashFlag: 0x01}},
	}

	// Bypass NormalizeParents/EncodeBead's own dedup-agnostic sort: hand-
	// encode the malformed set to prove the decoder, not the encoder, is
	// what rejects duplicates.
	var buf bytes.Buffer
	buf.Write(bead.Header.Serialize())

	writeUint64(&buf, 0) // transaction_ids
	writeUint64(&buf, 2) // parents set length
	buf.Write(h[:])
	buf.Write(h[:])
	writeUint64(&buf, 2) // parent_bead_timestamps length
	writeUint32(&buf, 0)
	writeUint32(&buf, 0)
	writeVarString(&buf, "")
	writeUint32(&buf, 0)
	var pub [CompressedPubKeySize]byte
	buf.Write(pub[:])
	writeCompactTarget(&buf, 0)
	writeCompactTarget(&buf, 0)
	writeVarString(&buf, "")
	writeInt32(&buf, 0)
	writeUint32(&buf, 0)
	writeSignature(&buf, Signature{DER: []byte{0x01}, SighashFlag: 0x01})

	_, err := DecodeBead(buf.Bytes())
	require.Error(t, err)
}
