// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sharebuilder

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/braidpool/node/wire"
)

// SighashAll is the only sighash flag this chain's bead signatures use: the
// signature always covers the entirety of a bead's identity bytes, there is
// nothing analogous to Bitcoin's input/output selection to carve up.
const SighashAll byte = 0x01

// Sign computes a bead's identity-byte signature under key and attaches it
// (together with SighashAll) as a wire.Signature. The source wires a
// hard-coded test signature; production signing must derive it from the
// miner's actual key, which is what this does.
func Sign(key *btcec.PrivateKey, bead *wire.Bead) wire.Signature {
	digest := chainhash.DoubleHashB(bead.IdentityBytes())
	sig := ecdsa.Sign(key, digest)
	return wire.Signature{DER: sig.Serialize(), SighashFlag: SighashAll}
}

// Verify reports whether sig is a valid signature over bead's identity
// bytes under pubKey. Per spec §9's open question on InvalidBead rejection
// rules, a bead whose signature fails this check must never reach the
// braid.
func Verify(pubKey *btcec.PublicKey, bead *wire.Bead, sig wire.Signature) bool {
	parsed, err := ecdsa.ParseDERSignature(sig.DER)
	if err != nil {
		return false
	}
	digest := chainhash.DoubleHashB(bead.IdentityBytes())
	return parsed.Verify(digest, pubKey)
}

// ParseCommPubKey decodes a bead's 33-byte compressed commitment public key.
func ParseCommPubKey(compressed [wire.CompressedPubKeySize]byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(compressed[:])
}
