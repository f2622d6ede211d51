package model

import "errors"

// Coordinator error taxonomy. Every externally-facing command resolves to
// one of these (possibly wrapped); none are thrown as panics.
var (
	// ErrProviderUnavailable indicates no wallet capability is reachable,
	// or the session was invalidated by a network change.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrUserRejected indicates the external access request was declined.
	ErrUserRejected = errors.New("wallet access rejected by user")

	// ErrNotConnected indicates a payment was attempted without a
	// connected wallet session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrUnknownTrack indicates the track id does not resolve in the
	// catalog index.
	ErrUnknownTrack = errors.New("unknown track")

	// ErrInsufficientFunds indicates the cached balance does not cover
	// the track price.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSettlementFailed indicates the external settlement call failed;
	// the cached balance is left unchanged.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrInvalidName indicates a playlist name that is empty after
	// trimming.
	ErrInvalidName = errors.New("invalid playlist name")

	// ErrAlreadyPresent indicates the track is already in the target
	// playlist.
	ErrAlreadyPresent = errors.New("track already present in playlist")

	// ErrStorageCorrupt indicates malformed persisted content. It is
	// recovered locally by resetting the collection to empty and is never
	// surfaced to callers.
	ErrStorageCorrupt = errors.New("persisted collection corrupt")

	// ErrRequestInFlight indicates a play request arrived while another
	// one was still being gated. Requests are serialized; the second one
	// is rejected rather than queued.
	ErrRequestInFlight = errors.New("another play request is in flight")

	// ErrNoPendingConfirmation indicates a confirm or cancel arrived with
	// no play request awaiting confirmation.
	ErrNoPendingConfirmation = errors.New("no pending confirmation")

	// ErrConfirmationFailed indicates the supplied secret did not match.
	// The pending request is kept for re-entry.
	ErrConfirmationFailed = errors.New("confirmation secret mismatch")

	// ErrNotPlaying indicates a transport command that is only valid from
	// the Playing or Paused states.
	ErrNotPlaying = errors.New("no track is playing")

	// ErrUnknownPlaylist indicates the playlist id does not exist.
	ErrUnknownPlaylist = errors.New("unknown playlist")
)
