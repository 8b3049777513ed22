// Copyright (c) 2013-2024 The btcsuite developers
// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

const (
	// ProtocolVersion is the version of the bead wire codec and sync
	// request/response envelopes implemented by this package. It is
	// exchanged opaquely by the peer overlay during connection setup and
	// has no bearing on the on-disk encoding, which is versionless.
	ProtocolVersion uint32 = 1

	// ProtocolID is the application-level protocol identifier negotiated
	// by the peer overlay (the overlay itself is out of scope for this
	// module; see spec §6).
	ProtocolID = "/braidpool/1.0.0"
)

// BraidNet identifies which share-chain network a bead or message belongs
// to, mirrored after Bitcoin's network-magic idiom so a node never mixes
// beads from two differently-configured braids.
type BraidNet uint32

const (
	// MainNet is the production braidpool share-chain.
	MainNet BraidNet = 0x42524144 // "BRAD"

	// TestNet is the public test share-chain.
	TestNet BraidNet = 0x54425244 // "TBRD"

	// RegTest is a local, regression-test-only share-chain with a
	// trivial minimum target.
	RegTest BraidNet = 0x52425244 // "RBRD"
)

var braidNetStrings = map[BraidNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	RegTest: "RegTest",
}

// String returns the BraidNet in human-readable form.
func (n BraidNet) String() string {
	if s, ok := braidNetStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BraidNet (%d)", uint32(n))
}
