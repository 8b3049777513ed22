// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package syncproto implements the request/response sync state machine of
// spec §4.4: answering a peer's requests against the local braid, and
// driving outbound requests to fill in missing parents or bootstrap a new
// peer connection.
package syncproto

import (
	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/wire"
)

// HandleRequest answers one inbound BeadRequest against chain and returns
// the canonically encoded BeadResponse to send back.
func HandleRequest(chain *braid.SafeBraid, reqBytes []byte) ([]byte, error) {
	req, err := wire.DecodeBeadRequest(reqBytes)
	if err != nil {
		log.Warnf("malformed sync request: %v", err)
		return nil, err
	}

	var resp wire.BeadResponse
	switch req.Kind {
	case wire.ReqGetBeads:
		resp = wire.NewBeadsResponse(chain.GetBeads(req.GetBeads))
	case wire.ReqGetTips:
		resp = wire.NewTipsResponse(chain.Tips())
	case wire.ReqGetGenesis:
		resp = wire.NewGenesisResponse(chain.Genesis())
	case wire.ReqGetAllBeads:
		resp = wire.NewGetAllBeadsResponse(chain.AllBeads())
	case wire.ReqGetBeadsAfter:
		// chain.GetBeadsAfter already returns an empty result rather than an
		// error for an unrecognized tip, so this path never needs to emit
		// Error(GenesisMismatch); genesis disagreement is instead caught by
		// the requester when it separately issues GetGenesis as part of
		// bootstrap (outbound.go).
		resp = wire.NewGetBeadsAfterResponse(chain.GetBeadsAfter(req.GetBeadsAfter))
	default:
		resp = wire.NewErrorResponse(wire.NewOtherSyncError("unrecognized request"))
	}

	return wire.EncodeBeadResponse(resp)
}
