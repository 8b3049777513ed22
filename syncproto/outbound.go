// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncproto

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/internal/braiderr"
	"github.com/braidpool/node/wire"
)

// FeedbackKind classifies the outcome of folding one peer-delivered bead or
// response through the local braid, for C5's score adjustment.
type FeedbackKind int

const (
	FeedbackBeadAdded FeedbackKind = iota
	FeedbackInvalidBead
	FeedbackGenesisMismatch
	FeedbackOther
)

// ScoreFeedback is implemented by the propagation coordinator (C5) to turn
// sync outcomes into peer score adjustments (spec §4.4 "Response
// handling").
type ScoreFeedback interface {
	Feedback(peerID string, kind FeedbackKind)
}

// PeerRanker selects the best k peers to target an outbound request at,
// implemented by the propagation coordinator's top-k selection (spec
// §4.5 point 5).
type PeerRanker interface {
	TopPeers(k int) []string
}

// RequestSender performs one correlated request/response round trip
// against a specific peer over the overlay.
type RequestSender interface {
	SendRequest(peerID string, payload []byte) ([]byte, error)
}

// RequestMissingParents is the outbound policy triggered by
// ParentsNotYetReceived: it issues GetBeads(missing) to the
// highest-scored connected peer. If no peer is available, it returns the
// missing set unchanged for the caller to buffer until the next
// PeerConnected event.
func RequestMissingParents(chain *braid.SafeBraid, ranker PeerRanker, sender RequestSender, feedback ScoreFeedback, missing []chainhash.Hash) ([]chainhash.Hash, error) {
	peers := ranker.TopPeers(1)
	if len(peers) == 0 {
		return missing, nil
	}
	peerID := peers[0]

	reqBytes, err := wire.EncodeBeadRequest(wire.NewGetBeadsRequest(missing))
	if err != nil {
		return missing, err
	}

	respBytes, err := sender.SendRequest(peerID, reqBytes)
	if err != nil {
		return missing, err
	}

	return nil, IngestResponse(chain, peerID, respBytes, feedback)
}

// BootstrapNewPeer runs the optional bootstrap sequence for a freshly
// connected peer: GetGenesis, then GetTips, then GetBeadsAfter(localTips).
// Implementations MAY defer or rate-limit this; callers decide when to
// invoke it.
func BootstrapNewPeer(chain *braid.SafeBraid, sender RequestSender, feedback ScoreFeedback, peerID string) error {
	genesisReq, err := wire.EncodeBeadRequest(wire.NewGetGenesisRequest())
	if err != nil {
		return err
	}
	genesisResp, err := sender.SendRequest(peerID, genesisReq)
	if err != nil {
		return err
	}
	if err := IngestResponse(chain, peerID, genesisResp, feedback); err != nil {
		return err
	}

	tipsReq, err := wire.EncodeBeadRequest(wire.NewGetTipsRequest())
	if err != nil {
		return err
	}
	tipsResp, err := sender.SendRequest(peerID, tipsReq)
	if err != nil {
		return err
	}
	if err := IngestResponse(chain, peerID, tipsResp, feedback); err != nil {
		return err
	}

	afterReq, err := wire.EncodeBeadRequest(wire.NewGetBeadsAfterRequest(chain.Tips()))
	if err != nil {
		return err
	}
	afterResp, err := sender.SendRequest(peerID, afterReq)
	if err != nil {
		return err
	}
	return IngestResponse(chain, peerID, afterResp, feedback)
}

// IngestResponse decodes a BeadResponse from peerID and folds it into the
// local braid per spec §4.4's response-handling table: bead sequences are
// each passed through Extend with per-bead score feedback; a Genesis
// response is checked against the local genesis set; a Tips response is
// accepted and its hashes are discarded, so no request for unknown tips is
// made; an Error response, like a malformed one, is reported to feedback as
// FeedbackOther, which propagation.Coordinator leaves without a score change.
func IngestResponse(chain *braid.SafeBraid, peerID string, respBytes []byte, feedback ScoreFeedback) error {
	resp, err := wire.DecodeBeadResponse(respBytes)
	if err != nil {
		log.Warnf("malformed sync response from %s: %v", peerID, err)
		feedback.Feedback(peerID, FeedbackOther)
		return err
	}

	switch resp.Kind {
	case wire.RespBeads, wire.RespGetAllBeads, wire.RespGetBeadsAfter:
		for i := range resp.Beads {
			switch chain.Extend(resp.Beads[i]) {
			case braid.BeadAdded:
				feedback.Feedback(peerID, FeedbackBeadAdded)
			case braid.InvalidBead:
				feedback.Feedback(peerID, FeedbackInvalidBead)
			case braid.DagAlreadyContainsBead, braid.ParentsNotYetReceived:
				// Neutral: already-seen beads and cascading orphan
				// requests are not this peer's fault.
			}
		}
		return nil

	case wire.RespGenesis:
		status := chain.CheckGenesisBeads(resp.GenesisHashes)
		if status != braid.GenesisBeadsValid {
			feedback.Feedback(peerID, FeedbackGenesisMismatch)
			return braiderr.New(braiderr.ErrGenesisMismatch, fmt.Sprintf("peer %s genesis check: %s", peerID, status))
		}
		return nil

	case wire.RespTips:
		// The tip hashes are not returned to the caller and unknown ones
		// are not requested.
		return nil

	case wire.RespError:
		feedback.Feedback(peerID, FeedbackOther)
		return fmt.Errorf("peer %s returned sync error kind 0x%02x: %s", peerID, resp.Error.Kind, resp.Error.Message)

	default:
		feedback.Feedback(peerID, FeedbackOther)
		return fmt.Errorf("peer %s returned unknown response kind 0x%02x", peerID, resp.Kind)
	}
}
