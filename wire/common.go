// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxFieldLength is the maximum number of bytes a single length-prefixed
// variable field (string or byte slice) may declare. Decoders reject any
// length prefix in excess of this as a malformed message rather than
// allocating on the caller's behalf.
const MaxFieldLength = 1 << 20 // 1 MiB

// MaxSetLength bounds the number of elements a sorted-set or sequence field
// may declare, independent of the per-element size.
const MaxSetLength = 1 << 20

// ErrDecode reports a canonical-decoding failure at a specific byte offset.
// Every decode failure in this package surfaces as an ErrDecode so callers
// (C4/C5) can demerit the sending peer without inspecting error internals.
type ErrDecode struct {
	Pos    int
	Reason string
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("decode error at byte %d: %s", e.Pos, e.Reason)
}

func newErrDecode(pos int, format string, args ...interface{}) error {
	return &ErrDecode{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

// countingReader tracks how many bytes have been consumed so ErrDecode can
// report a useful position.
type countingReader struct {
	r   *bytes.Reader
	pos int
}

func newCountingReader(b []byte) *countingReader {
	return &countingReader{r: bytes.NewReader(b)}
}

func (c *countingReader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(c.r, buf)
	c.pos += read
	if err != nil {
		return nil, newErrDecode(c.pos, "short read: need %d bytes, got %d: %v", n, read, err)
	}
	return buf, nil
}

func writeUint8(w *bytes.Buffer, v uint8) {
	w.WriteByte(v)
}

func readUint8(c *countingReader) (uint8, error) {
	b, err := c.readFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func readUint32(c *countingReader) (uint32, error) {
	b, err := c.readFull(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func writeInt32(w *bytes.Buffer, v int32) {
	writeUint32(w, uint32(v))
}

func readInt32(c *countingReader) (int32, error) {
	v, err := readUint32(c)
	return int32(v), err
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func readUint64(c *countingReader) (uint64, error) {
	b, err := c.readFull(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// writeVarBytes writes a u64 length prefix followed by the raw bytes.
func writeVarBytes(w *bytes.Buffer, b []byte) error {
	if uint64(len(b)) > ^uint64(0) {
		return fmt.Errorf("field length %d exceeds u64", len(b))
	}
	writeUint64(w, uint64(len(b)))
	w.Write(b)
	return nil
}

// readVarBytes reads a u64-length-prefixed byte field, rejecting lengths
// beyond maxLen as malformed.
func readVarBytes(c *countingReader, maxLen int) ([]byte, error) {
	n, err := readUint64(c)
	if err != nil {
		return nil, err
	}
	if n > uint64(maxLen) {
		return nil, newErrDecode(c.pos, "field length %d exceeds cap %d", n, maxLen)
	}
	return c.readFull(int(n))
}

func writeVarString(w *bytes.Buffer, s string) error {
	return writeVarBytes(w, []byte(s))
}

func readVarString(c *countingReader, maxLen int) (string, error) {
	b, err := readVarBytes(c, maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sortHashes returns a copy of hashes in ascending byte order, the only
// canonical ordering this codec accepts for set-valued fields.
func sortHashes(hashes []chainhash.Hash) []chainhash.Hash {
	sorted := make([]chainhash.Hash, len(hashes))
	copy(sorted, hashes)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	return sorted
}

// writeHashSet encodes a set of hashes as a u64 count followed by the
// elements in ascending byte order.
func writeHashSet(w *bytes.Buffer, hashes []chainhash.Hash) error {
	sorted := sortHashes(hashes)
	writeUint64(w, uint64(len(sorted)))
	for _, h := range sorted {
		w.Write(h[:])
	}
	return nil
}

// readHashSet decodes a set of hashes, rejecting any encoding whose elements
// are not in strict ascending order (which also rejects duplicates).
func readHashSet(c *countingReader) ([]chainhash.Hash, error) {
	n, err := readUint64(c)
	if err != nil {
		return nil, err
	}
	if n > MaxSetLength {
		return nil, newErrDecode(c.pos, "set length %d exceeds cap %d", n, MaxSetLength)
	}
	out := make([]chainhash.Hash, n)
	for i := uint64(0); i < n; i++ {
		b, err := c.readFull(chainhash.HashSize)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], b)
		if i > 0 && bytes.Compare(out[i][:], out[i-1][:]) <= 0 {
			return nil, newErrDecode(c.pos, "hash set not in strict ascending order at index %d", i)
		}
	}
	return out, nil
}

// writeHashSeq encodes an ordered sequence of hashes (no sorting, order is
// meaningful).
func writeHashSeq(w *bytes.Buffer, hashes []chainhash.Hash) {
	writeUint64(w, uint64(len(hashes)))
	for _, h := range hashes {
		w.Write(h[:])
	}
}

func readHashSeq(c *countingReader) ([]chainhash.Hash, error) {
	n, err := readUint64(c)
	if err != nil {
		return nil, err
	}
	if n > MaxSetLength {
		return nil, newErrDecode(c.pos, "sequence length %d exceeds cap %d", n, MaxSetLength)
	}
	out := make([]chainhash.Hash, n)
	for i := uint64(0); i < n; i++ {
		b, err := c.readFull(chainhash.HashSize)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], b)
	}
	return out, nil
}
