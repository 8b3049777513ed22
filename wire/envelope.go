// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Request/response/error discriminants, one byte each, per spec §4.1.
// These are exported so callers can switch on BeadRequest.Kind /
// BeadResponse.Kind / BeadSyncError.Kind without re-deriving the byte
// values.
const (
	ReqGetBeads      byte = 0x01
	ReqGetTips       byte = 0x02
	ReqGetGenesis    byte = 0x03
	ReqGetAllBeads   byte = 0x04
	ReqGetBeadsAfter byte = 0x05

	RespBeads         byte = 0x10
	RespTips          byte = 0x11
	RespGenesis       byte = 0x12
	RespGetAllBeads   byte = 0x13
	RespGetBeadsAfter byte = 0x14
	RespError         byte = 0x1F

	ErrKindGenesisMismatch byte = 0x01
	ErrKindOther           byte = 0x02
)

const (
	reqGetBeads      = ReqGetBeads
	reqGetTips       = ReqGetTips
	reqGetGenesis    = ReqGetGenesis
	reqGetAllBeads   = ReqGetAllBeads
	reqGetBeadsAfter = ReqGetBeadsAfter

	respBeads         = RespBeads
	respTips          = RespTips
	respGenesis       = RespGenesis
	respGetAllBeads   = RespGetAllBeads
	respGetBeadsAfter = RespGetBeadsAfter
	respError         = RespError

	errGenesisMismatch = ErrKindGenesisMismatch
	errOther           = ErrKindOther
)

// BeadRequest is the tagged union of sync requests a peer may send.
// Exactly one of the fields is meaningful, selected by Kind.
type BeadRequest struct {
	Kind byte

	GetBeads      []chainhash.Hash // reqGetBeads: sorted set
	GetBeadsAfter []chainhash.Hash // reqGetBeadsAfter: ordered sequence
}

func NewGetBeadsRequest(hashes []chainhash.Hash) BeadRequest {
	return BeadRequest{Kind: reqGetBeads, GetBeads: hashes}
}

func NewGetTipsRequest() BeadRequest { return BeadRequest{Kind: reqGetTips} }

func NewGetGenesisRequest() BeadRequest { return BeadRequest{Kind: reqGetGenesis} }

func NewGetAllBeadsRequest() BeadRequest { return BeadRequest{Kind: reqGetAllBeads} }

func NewGetBeadsAfterRequest(tips []chainhash.Hash) BeadRequest {
	return BeadRequest{Kind: reqGetBeadsAfter, GetBeadsAfter: tips}
}

// EncodeBeadRequest writes the canonical serialization of a request.
func EncodeBeadRequest(r BeadRequest) ([]byte, error) {
	var buf bytes.Buffer
	writeUint8(&buf, r.Kind)
	switch r.Kind {
	case reqGetBeads:
		if err := writeHashSet(&buf, r.GetBeads); err != nil {
			return nil, err
		}
	case reqGetTips, reqGetGenesis, reqGetAllBeads:
		// empty payload
	case reqGetBeadsAfter:
		writeHashSeq(&buf, r.GetBeadsAfter)
	default:
		return nil, newErrDecode(0, "unknown request discriminant 0x%02x", r.Kind)
	}
	return buf.Bytes(), nil
}

// DecodeBeadRequest parses a canonically-encoded request.
func DecodeBeadRequest(data []byte) (*BeadRequest, error) {
	c := newCountingReader(data)
	kind, err := readUint8(c)
	if err != nil {
		return nil, err
	}
	req := &BeadRequest{Kind: kind}
	switch kind {
	case reqGetBeads:
		hashes, err := readHashSet(c)
		if err != nil {
			return nil, err
		}
		req.GetBeads = hashes
	case reqGetTips, reqGetGenesis, reqGetAllBeads:
		// empty payload
	case reqGetBeadsAfter:
		hashes, err := readHashSeq(c)
		if err != nil {
			return nil, err
		}
		req.GetBeadsAfter = hashes
	default:
		return nil, newErrDecode(c.pos, "unknown request discriminant 0x%02x", kind)
	}
	return req, nil
}

// BeadSyncError is the error payload carried by a BeadResponse of kind
// respError.
type BeadSyncError struct {
	Kind    byte
	Message string // errOther only
}

var ErrGenesisMismatch = BeadSyncError{Kind: errGenesisMismatch}

func NewOtherSyncError(msg string) BeadSyncError {
	return BeadSyncError{Kind: errOther, Message: msg}
}

func encodeBeadSyncError(w *bytes.Buffer, e BeadSyncError) error {
	writeUint8(w, e.Kind)
	switch e.Kind {
	case errGenesisMismatch:
		// no payload
	case errOther:
		return writeVarString(w, e.Message)
	default:
		return newErrDecode(0, "unknown sync error discriminant 0x%02x", e.Kind)
	}
	return nil
}

func decodeBeadSyncError(c *countingReader) (*BeadSyncError, error) {
	kind, err := readUint8(c)
	if err != nil {
		return nil, err
	}
	e := &BeadSyncError{Kind: kind}
	switch kind {
	case errGenesisMismatch:
	case errOther:
		msg, err := readVarString(c, MaxFieldLength)
		if err != nil {
			return nil, err
		}
		e.Message = msg
	default:
		return nil, newErrDecode(c.pos, "unknown sync error discriminant 0x%02x", kind)
	}
	return e, nil
}

// BeadResponse is the tagged union of sync responses a peer may send.
type BeadResponse struct {
	Kind byte

	Beads         []Bead           // respBeads, respGetAllBeads, respGetBeadsAfter
	TipHashes     []chainhash.Hash // respTips
	GenesisHashes []chainhash.Hash // respGenesis
	Error         BeadSyncError    // respError
}

func NewBeadsResponse(beads []Bead) BeadResponse {
	return BeadResponse{Kind: respBeads, Beads: beads}
}

func NewTipsResponse(hashes []chainhash.Hash) BeadResponse {
	return BeadResponse{Kind: respTips, TipHashes: hashes}
}

func NewGenesisResponse(hashes []chainhash.Hash) BeadResponse {
	return BeadResponse{Kind: respGenesis, GenesisHashes: hashes}
}

func NewGetAllBeadsResponse(beads []Bead) BeadResponse {
	return BeadResponse{Kind: respGetAllBeads, Beads: beads}
}

func NewGetBeadsAfterResponse(beads []Bead) BeadResponse {
	return BeadResponse{Kind: respGetBeadsAfter, Beads: beads}
}

func NewErrorResponse(e BeadSyncError) BeadResponse {
	return BeadResponse{Kind: respError, Error: e}
}

// EncodeBeadResponse writes the canonical serialization of a response.
func EncodeBeadResponse(r BeadResponse) ([]byte, error) {
	var buf bytes.Buffer
	writeUint8(&buf, r.Kind)
	switch r.Kind {
	case respBeads, respGetAllBeads, respGetBeadsAfter:
		writeUint64(&buf, uint64(len(r.Beads)))
		for i := range r.Beads {
			encoded, err := EncodeBead(&r.Beads[i])
			if err != nil {
				return nil, err
			}
			if err := writeVarBytes(&buf, encoded); err != nil {
				return nil, err
			}
		}
	case respTips:
		writeHashSeq(&buf, r.TipHashes)
	case respGenesis:
		writeHashSeq(&buf, r.GenesisHashes)
	case respError:
		if err := encodeBeadSyncError(&buf, r.Error); err != nil {
			return nil, err
		}
	default:
		return nil, newErrDecode(0, "unknown response discriminant 0x%02x", r.Kind)
	}
	return buf.Bytes(), nil
}

// DecodeBeadResponse parses a canonically-encoded response.
func DecodeBeadResponse(data []byte) (*BeadResponse, error) {
	c := newCountingReader(data)
	kind, err := readUint8(c)
	if err != nil {
		return nil, err
	}
	resp := &BeadResponse{Kind: kind}
	switch kind {
	case respBeads, respGetAllBeads, respGetBeadsAfter:
		n, err := readUint64(c)
		if err != nil {
			return nil, err
		}
		if n > MaxSetLength {
			return nil, newErrDecode(c.pos, "bead sequence length %d exceeds cap", n)
		}
		beads := make([]Bead, n)
		for i := uint64(0); i < n; i++ {
			raw, err := readVarBytes(c, MaxFieldLength*4)
			if err != nil {
				return nil, err
			}
			b, err := DecodeBead(raw)
			if err != nil {
				return nil, err
			}
			beads[i] = *b
		}
		resp.Beads = beads
	case respTips:
		hashes, err := readHashSeq(c)
		if err != nil {
			return nil, err
		}
		resp.TipHashes = hashes
	case respGenesis:
		hashes, err := readHashSeq(c)
		if err != nil {
			return nil, err
		}
		resp.GenesisHashes = hashes
	case respError:
		e, err := decodeBeadSyncError(c)
		if err != nil {
			return nil, err
		}
		resp.Error = *e
	default:
		return nil, newErrDecode(c.pos, "unknown response discriminant 0x%02x", kind)
	}
	return resp, nil
}
