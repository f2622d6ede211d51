// Package player owns the playback state machine and the coordinator
// that gates every track transition behind confirmation and payment.
package player

import (
	"context"

	"cassette/model"
)

// Transport is the audio boundary under the controller. Load prepares
// the given track; onEnd is invoked once when the track finishes
// naturally (transports that cannot observe the end, like the null
// transport, never call it — the presentation layer reports the end
// instead).
type Transport interface {
	Load(ctx context.Context, track *model.Track, streamURL string, onEnd func()) error
	Play() error
	Pause() error
	Stop() error
}

// NullTransport is the default transport: the presentation layer drives
// the actual audio element from the stream URL, so the process-side
// transport has nothing to do.
type NullTransport struct{}

// NewNullTransport returns the do-nothing transport.
func NewNullTransport() *NullTransport {
	return &NullTransport{}
}

func (t *NullTransport) Load(ctx context.Context, track *model.Track, streamURL string, onEnd func()) error {
	return nil
}

func (t *NullTransport) Play() error {
	return nil
}

func (t *NullTransport) Pause() error {
	return nil
}

func (t *NullTransport) Stop() error {
	return nil
}
