package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cassette/logger"
	"cassette/model"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// SpeakerTransport plays track audio through the local speaker. Audio
// files are looked up as <mediaDir>/<trackID>.mp3. It exists for the
// headless-listening setup; the usual deployment leaves playback to the
// presentation layer via NullTransport.
type SpeakerTransport struct {
	mediaDir string

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
}

// NewSpeakerTransport initializes the speaker once for the process.
func NewSpeakerTransport(mediaDir string) (*SpeakerTransport, error) {
	sr := beep.SampleRate(44100)
	if err := speaker.Init(sr, sr.N(time.Millisecond*100)); err != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", err)
	}
	return &SpeakerTransport{mediaDir: mediaDir}, nil
}

// Load decodes the track's local file and starts it paused-free on the
// speaker; onEnd fires when the streamer drains.
func (t *SpeakerTransport) Load(ctx context.Context, track *model.Track, streamURL string, onEnd func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	path := filepath.Join(t.mediaDir, fmt.Sprintf("%d.mp3", track.ID))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audio file %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	t.streamer = streamer
	t.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, beep.SampleRate(44100), streamer)}

	speaker.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		logger.Debug("speaker transport reached end of track", logger.Int64("trackId", track.ID))
		if onEnd != nil {
			onEnd()
		}
	})))
	return nil
}

// Play unpauses the speaker stream.
func (t *SpeakerTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctrl == nil {
		return model.ErrNotPlaying
	}
	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause pauses the speaker stream.
func (t *SpeakerTransport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctrl == nil {
		return model.ErrNotPlaying
	}
	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop clears the speaker and releases the current streamer.
func (t *SpeakerTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	return nil
}

func (t *SpeakerTransport) stopLocked() {
	if t.streamer == nil {
		return
	}
	speaker.Clear()
	t.streamer.Close()
	t.streamer = nil
	t.ctrl = nil
}
