package player

import (
	"context"
	"fmt"
	"sync"

	"cassette/logger"
	"cassette/model"
)

// Controller owns the playback session: Idle → Loading → Playing ⇄
// Paused → Idle. It never runs the payment gate itself; the coordinator
// only calls StartTrack once a charge has settled.
type Controller struct {
	transport Transport

	mu      sync.Mutex
	session model.PlaybackSession
}

// NewController starts in the Idle state.
func NewController(transport Transport) *Controller {
	return &Controller{
		transport: transport,
		session:   model.PlaybackSession{State: model.PlayerIdle},
	}
}

// Session returns a copy of the playback session.
func (c *Controller) Session() model.PlaybackSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// StartTrack transitions Loading → Playing for an already-paid track.
// A transport failure after payment is terminal: the session drops to
// Idle and the error surfaces to the caller.
func (c *Controller) StartTrack(ctx context.Context, track *model.Track, streamURL string, onEnd func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := track.ID
	c.session = model.PlaybackSession{
		State:          model.PlayerLoading,
		CurrentTrackID: &id,
		StreamURL:      streamURL,
	}

	if err := c.transport.Load(ctx, track, streamURL, onEnd); err != nil {
		c.session = model.PlaybackSession{State: model.PlayerIdle}
		return fmt.Errorf("failed to load track %d: %w", id, err)
	}
	if err := c.transport.Play(); err != nil {
		c.session = model.PlaybackSession{State: model.PlayerIdle}
		return fmt.Errorf("failed to start track %d: %w", id, err)
	}

	c.session.State = model.PlayerPlaying
	c.session.IsPlaying = true
	c.session.PositionSeconds = 0
	logger.Info("playback started",
		logger.Int64("trackId", id),
		logger.String("title", track.Title))
	return nil
}

// TogglePlayPause flips between Playing and Paused. Valid only from
// those two states; no payment is re-triggered.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.State {
	case model.PlayerPlaying:
		if err := c.transport.Pause(); err != nil {
			return err
		}
		c.session.State = model.PlayerPaused
		c.session.IsPlaying = false
	case model.PlayerPaused:
		if err := c.transport.Play(); err != nil {
			return err
		}
		c.session.State = model.PlayerPlaying
		c.session.IsPlaying = true
	default:
		return model.ErrNotPlaying
	}
	return nil
}

// Stop drops to Idle from any state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transport.Stop(); err != nil {
		logger.Warn("transport stop failed", logger.ErrorField(err))
	}
	c.session = model.PlaybackSession{State: model.PlayerIdle}
}

// CurrentTrackID returns the playing/paused track id, or false.
func (c *Controller) CurrentTrackID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.CurrentTrackID == nil {
		return 0, false
	}
	return *c.session.CurrentTrackID, true
}

// UpdatePosition records playback progress reported by the presentation
// layer. Ignored while nothing is loaded.
func (c *Controller) UpdatePosition(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == model.PlayerPlaying || c.session.State == model.PlayerPaused {
		c.session.PositionSeconds = seconds
	}
}
