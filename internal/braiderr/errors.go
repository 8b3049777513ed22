// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package braiderr defines the structured error type used by the share
// builder, sync protocol, and bead store packages, following the same
// ErrorCode-plus-description shape used by the database and blockchain
// packages this daemon descends from.
package braiderr

import "fmt"

// ErrorCode identifies a kind of error that can occur while building,
// validating, storing, or relaying a bead.
type ErrorCode int

const (
	// ErrMissingAncestorWork indicates a work accumulation pass reached a
	// bead whose ancestor work could not be resolved, usually because the
	// braid is missing one of its ancestors.
	ErrMissingAncestorWork ErrorCode = iota

	// ErrHighestWorkBeadFetchFailed indicates the highest-work path
	// computation could not identify a terminal bead.
	ErrHighestWorkBeadFetchFailed

	// ErrTemplateConsumeError indicates a block/job template could not be
	// consumed to build a candidate share.
	ErrTemplateConsumeError

	// ErrQueueFull indicates a bounded internal queue rejected a new item
	// because it is at capacity.
	ErrQueueFull

	// ErrConnectionBroken indicates a peer connection failed in a way that
	// requires the connection to be torn down and retried.
	ErrConnectionBroken

	// ErrLogicError indicates an invariant internal to this daemon was
	// violated; these should never surface to a peer and are always a bug.
	ErrLogicError

	// ErrInvalidCoinbase indicates a submitted share's coinbase transaction
	// could not be parsed or does not match the job it claims to satisfy.
	ErrInvalidCoinbase

	// ErrInvalidShare indicates a submitted share failed proof-of-work,
	// signature, or commitment validation.
	ErrInvalidShare

	// ErrJobNotFound indicates a share was submitted against a job id this
	// node is no longer tracking.
	ErrJobNotFound

	// ErrPeerNotFound indicates an operation referenced a peer id this
	// node has no record of.
	ErrPeerNotFound

	// ErrStoreUnavailable indicates the persistence sink could not accept
	// a write; callers on the Extend critical path must not block on this.
	ErrStoreUnavailable

	// ErrPoWFailure indicates a submitted share's header hash does not
	// satisfy its weak target.
	ErrPoWFailure

	// ErrVersionMaskViolation indicates a submitted share rolled version
	// bits outside the agreed version-rolling mask.
	ErrVersionMaskViolation

	// ErrGenesisMismatch indicates a peer's reported genesis set disagrees
	// with the local one.
	ErrGenesisMismatch
)

var errorCodeStrings = map[ErrorCode]string{
	ErrMissingAncestorWork:        "ErrMissingAncestorWork",
	ErrHighestWorkBeadFetchFailed: "ErrHighestWorkBeadFetchFailed",
	ErrTemplateConsumeError:       "ErrTemplateConsumeError",
	ErrQueueFull:                  "ErrQueueFull",
	ErrConnectionBroken:           "ErrConnectionBroken",
	ErrLogicError:                 "ErrLogicError",
	ErrInvalidCoinbase:            "ErrInvalidCoinbase",
	ErrInvalidShare:               "ErrInvalidShare",
	ErrJobNotFound:                "ErrJobNotFound",
	ErrPeerNotFound:               "ErrPeerNotFound",
	ErrStoreUnavailable:           "ErrStoreUnavailable",
	ErrPoWFailure:                 "ErrPoWFailure",
	ErrVersionMaskViolation:       "ErrVersionMaskViolation",
	ErrGenesisMismatch:            "ErrGenesisMismatch",
}

// String returns the ErrorCode in human-readable form.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error satisfies the error interface and identifies a specific condition
// through its Code, with an optional human-readable Description and wrapped
// underlying Err.
type Error struct {
	Code        ErrorCode
	Description string
	Err         error
}

// Error returns the error as a human-readable string.
func (e *Error) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

// Unwrap returns the underlying wrapped error, if any, so errors.Is and
// errors.As work across this package's boundary.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a braiderr.Error with the given code and description.
func New(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap creates a braiderr.Error with the given code, wrapping an
// underlying error.
func Wrap(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Is reports whether target is a *Error with the same Code, so callers can
// write errors.Is(err, braiderr.New(ErrQueueFull, "")) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
