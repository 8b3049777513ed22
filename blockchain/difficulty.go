// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain holds the small amount of Bitcoin-style consensus math
// the share-submission pipeline needs: compact-target conversion and
// proof-of-work checks against a bead's weak target.
package blockchain

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/braidpool/node/wire"
)

// CompactToBig converts a compact ("nBits") representation to a big
// integer, the same algorithm Bitcoin uses for its difficulty bits.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a big integer to its compact ("nBits")
// representation, the inverse of CompactToBig.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// HashToBig converts a hash to a big integer by reinterpreting its bytes in
// big-endian order (hashes are stored/compared in little-endian/network
// order, but proof-of-work comparisons are against a big-endian integer).
func HashToBig(hash *chainhash.Hash) *big.Int {
	var buf [chainhash.HashSize]byte
	for i := 0; i < chainhash.HashSize; i++ {
		buf[i] = hash[chainhash.HashSize-1-i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// TargetFromCompact returns the big-integer target a compact value
// represents.
func TargetFromCompact(compact wire.CompactTarget) *big.Int {
	return CompactToBig(uint32(compact))
}

// CheckProofOfWork reports whether hash satisfies the target represented
// by compact, i.e. whether the bead's header meets
// target_from_compact(weak_target) (spec §3 invariant 1).
func CheckProofOfWork(hash chainhash.Hash, compact wire.CompactTarget) bool {
	target := TargetFromCompact(compact)
	if target.Sign() <= 0 {
		return false
	}
	return HashToBig(&hash).Cmp(target) <= 0
}

// CompactLess reports whether a represents a harder (numerically smaller)
// target than b.
func CompactLess(a, b wire.CompactTarget) bool {
	return CompactToBig(uint32(a)).Cmp(CompactToBig(uint32(b))) < 0
}

// MeetsMinTargetPolicy reports whether weakTarget is at least as hard as
// minTarget, i.e. target(weakTarget) <= target(minTarget) (spec §3
// invariant 2).
func MeetsMinTargetPolicy(weakTarget, minTarget wire.CompactTarget) bool {
	return TargetFromCompact(weakTarget).Cmp(TargetFromCompact(minTarget)) <= 0
}
