package model

// PlayerState is the playback state machine position.
type PlayerState string

const (
	PlayerIdle    PlayerState = "idle"
	PlayerLoading PlayerState = "loading"
	PlayerPlaying PlayerState = "playing"
	PlayerPaused  PlayerState = "paused"
)

// PlaybackSession is the single playback pointer for this client.
// CurrentTrackID is non-nil whenever IsPlaying is true.
type PlaybackSession struct {
	State           PlayerState `json:"state"`
	CurrentTrackID  *int64      `json:"currentTrackId"`
	IsPlaying       bool        `json:"isPlaying"`
	PositionSeconds float64     `json:"positionSeconds"`
	StreamURL       string      `json:"streamUrl,omitempty"`
}

// ConfirmationState is the manual-confirmation state machine position.
type ConfirmationState string

const (
	ConfirmationClear   ConfirmationState = "clear"
	ConfirmationPending ConfirmationState = "pending"
)

// PendingConfirmation records the track a play request is waiting on while
// the confirmation policy awaits user input. Transient, never persisted.
type PendingConfirmation struct {
	TrackID int64 `json:"trackId"`
}
