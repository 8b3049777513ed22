// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// HashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation. This is the building
// block used to recompute a merkle root from a coinbase txid and a fixed
// merkle path.
func HashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	var concat [chainhash.HashSize * 2]byte
	copy(concat[:chainhash.HashSize], left[:])
	copy(concat[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(concat[:])
}

// MerkleRootFromCoinbaseAndPath recomputes a block's merkle root given the
// coinbase transaction's txid and the job-supplied merkle path of sibling
// hashes from coinbase to root (the Stratum-style merkle branch, as opposed
// to a full merkle tree). Each step combines the running hash with the next
// path element, running hash on the left, since the coinbase is always the
// tree's leftmost leaf.
func MerkleRootFromCoinbaseAndPath(coinbaseTxid chainhash.Hash, path []chainhash.Hash) chainhash.Hash {
	root := coinbaseTxid
	for _, sibling := range path {
		root = HashMerkleBranches(&root, &sibling)
	}
	return root
}
