package snapshot

import "errors"

// Sentinel errors for the error kinds enumerated in spec.md §7. None of
// these are fatal to the simulator: each is localized to the command that
// produced it and leaves every invariant intact. The snapshot package wraps
// these with github.com/pkg/errors to attach call-site context (which node,
// which peer) before returning them; engine.Engine.RunScript adds the
// script line number.
var (
	// ErrInsufficientFunds is returned by Send when amount exceeds the
	// sender's current balance. Reported to the command protocol as
	// ERR_SEND (spec.md §6). The sending node is left unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownPeer is returned when Send or Receive names a node id that
	// is not part of the current topology. The operation is a no-op.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrSnapshotInProgress names the case of a snapshot already underway.
	// At most one snapshot may be in flight at a time (spec.md §1, §4.3).
	// Controller.BeginSnapshot returns no error: it handles this case as a
	// silent no-op, so no code path returns this sentinel.
	ErrSnapshotInProgress = errors.New("snapshot already in progress")

	// ErrProtocolViolation marks a malformed protocol interaction: an
	// unexpected message kind on a channel, or CreateNode with an id that
	// already exists. The operation makes no state change. A Marker arriving
	// on a channel already closed for recording is tolerated silently and
	// does not produce this error.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrNegativeAmount is returned when a Send names a negative amount,
	// which is never valid (spec.md §3: Transfer amounts
	// are non-negative integers).
	ErrNegativeAmount = errors.New("negative transfer amount")
)
