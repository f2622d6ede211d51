package player

import (
	"context"
	"fmt"
	"sync"

	"cassette/catalog"
	"cassette/core/collection"
	"cassette/core/gate"
	"cassette/core/wallet"
	"cassette/logger"
	"cassette/model"
)

// AudioResolver turns a catalog track into a playable stream URL. The
// object-storage resolver presigns a GET; a nil resolver falls back to
// the catalog's direct audio URL.
type AudioResolver interface {
	ResolveStreamURL(ctx context.Context, track *model.Track) (string, error)
}

// Event is one coordinator state-change notification, pushed to the
// presentation layer over the websocket feed.
type Event struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data,omitempty"`
}

// PlayResult is the outcome of a play request: either playback started
// (with a receipt) or the request is waiting on manual confirmation.
type PlayResult struct {
	Pending bool           `json:"pending"`
	Receipt *model.Receipt `json:"receipt,omitempty"`
}

// Coordinator wires the whole pipeline: confirmation policy → payment
// gate → playback transition → history record. Play requests are
// processed one at a time; a second request while one is in flight is
// rejected rather than queued.
type Coordinator struct {
	catalog     *catalog.Index
	session     *wallet.Session
	gate        *gate.PaymentGate
	policy      *gate.ConfirmationPolicy
	controller  *Controller
	collections *collection.Manager
	resolver    AudioResolver

	mu       sync.Mutex
	inFlight bool

	events chan Event
}

// NewCoordinator assembles the coordinator and hooks the change
// callbacks of its parts into the event feed.
func NewCoordinator(
	cat *catalog.Index,
	session *wallet.Session,
	paymentGate *gate.PaymentGate,
	policy *gate.ConfirmationPolicy,
	controller *Controller,
	collections *collection.Manager,
	resolver AudioResolver,
) *Coordinator {
	c := &Coordinator{
		catalog:     cat,
		session:     session,
		gate:        paymentGate,
		policy:      policy,
		controller:  controller,
		collections: collections,
		resolver:    resolver,
		events:      make(chan Event, 64),
	}

	session.OnChange(func(state model.WalletState) {
		c.publish(Event{Kind: "wallet", Data: state})
	})
	collections.OnChange(func(what string) {
		c.publish(Event{Kind: "collections:" + what})
	})
	return c
}

// Events is the feed of coordinator state changes. Slow consumers drop
// events rather than block the pipeline.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

func (c *Coordinator) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		logger.Debug("event feed full, dropping event", logger.String("kind", ev.Kind))
	}
}

// RequestPlay runs the full gate for trackID. With auto-pay off the
// request parks in the confirmation policy and the result is pending;
// otherwise it charges and starts playback.
func (c *Coordinator) RequestPlay(ctx context.Context, trackID int64) (*PlayResult, error) {
	if _, err := c.catalog.Get(trackID); err != nil {
		return nil, err
	}
	if !c.session.State().Connected {
		return nil, model.ErrNotConnected
	}

	cleared, err := c.policy.Intercept(trackID)
	if err != nil {
		return nil, err
	}
	if !cleared {
		c.publish(Event{Kind: "confirmation", Data: c.policy.Pending()})
		return &PlayResult{Pending: true}, nil
	}

	receipt, err := c.performGatedPlay(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return &PlayResult{Receipt: receipt}, nil
}

// ConfirmPending resolves the pending confirmation with a secret and, on
// a match, forwards the parked request to the payment gate. A mismatch
// leaves the pending request in place for re-entry.
func (c *Coordinator) ConfirmPending(ctx context.Context, secret string) (*PlayResult, error) {
	trackID, err := c.policy.Confirm(secret)
	if err != nil {
		return nil, err
	}
	c.publish(Event{Kind: "confirmation", Data: nil})

	receipt, err := c.performGatedPlay(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return &PlayResult{Receipt: receipt}, nil
}

// CancelPending drops the pending confirmation; nothing is charged.
func (c *Coordinator) CancelPending() error {
	if _, err := c.policy.Cancel(); err != nil {
		return err
	}
	c.publish(Event{Kind: "confirmation", Data: nil})
	return nil
}

// performGatedPlay is the atomic charge-and-transition unit. The
// in-flight flag rejects overlapping requests; once Charge is issued the
// request runs to resolution, success or failure.
func (c *Coordinator) performGatedPlay(ctx context.Context, trackID int64) (*model.Receipt, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, model.ErrRequestInFlight
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	receipt, err := c.gate.Charge(ctx, trackID)
	if err != nil {
		// Gate failure: playback session, history, balance all untouched.
		return nil, err
	}

	track, err := c.catalog.Get(trackID)
	if err != nil {
		// Unreachable after a successful charge; the catalog is static.
		return nil, err
	}

	streamURL := track.AudioURL
	if c.resolver != nil {
		if url, err := c.resolver.ResolveStreamURL(ctx, track); err != nil {
			logger.Warn("stream url resolution failed, using catalog url",
				logger.Int64("trackId", trackID), logger.ErrorField(err))
		} else if url != "" {
			streamURL = url
		}
	}

	if err := c.controller.StartTrack(ctx, track, streamURL, func() {
		go c.trackEnded()
	}); err != nil {
		c.publish(Event{Kind: "playback", Data: c.controller.Session()})
		return nil, err
	}

	if err := c.collections.RecordPlay(ctx, trackID, receipt.Amount); err != nil {
		// The charge settled and playback is running; a history persist
		// failure is logged, not unwound.
		logger.Error("failed to record history entry",
			logger.Int64("trackId", trackID), logger.ErrorField(err))
	}
	c.catalog.IncrementPlayCount(trackID)

	c.publish(Event{Kind: "playback", Data: c.controller.Session()})
	return receipt, nil
}

// Next plays the following track in catalog order, wrapping around.
// Every track change is a fresh payment event.
func (c *Coordinator) Next(ctx context.Context) (*PlayResult, error) {
	current, ok := c.controller.CurrentTrackID()
	if !ok {
		return nil, model.ErrNotPlaying
	}
	nextID, err := c.catalog.NextID(current)
	if err != nil {
		return nil, err
	}
	return c.RequestPlay(ctx, nextID)
}

// Previous plays the preceding track in catalog order, wrapping around.
func (c *Coordinator) Previous(ctx context.Context) (*PlayResult, error) {
	current, ok := c.controller.CurrentTrackID()
	if !ok {
		return nil, model.ErrNotPlaying
	}
	prevID, err := c.catalog.PrevID(current)
	if err != nil {
		return nil, err
	}
	return c.RequestPlay(ctx, prevID)
}

// TrackEnded is the natural end-of-track command from the presentation
// layer; it behaves exactly like Next.
func (c *Coordinator) TrackEnded(ctx context.Context) (*PlayResult, error) {
	return c.Next(ctx)
}

// trackEnded is the transport-driven variant of TrackEnded.
func (c *Coordinator) trackEnded() {
	if _, err := c.TrackEnded(context.Background()); err != nil {
		logger.Warn("auto-advance after track end failed", logger.ErrorField(err))
	}
}

// TogglePlayPause flips the transport run state without re-charging.
func (c *Coordinator) TogglePlayPause() error {
	if err := c.controller.TogglePlayPause(); err != nil {
		return err
	}
	c.publish(Event{Kind: "playback", Data: c.controller.Session()})
	return nil
}

// Stop drops playback to Idle.
func (c *Coordinator) Stop() {
	c.controller.Stop()
	c.publish(Event{Kind: "playback", Data: c.controller.Session()})
}

// UpdatePosition records reported playback progress.
func (c *Coordinator) UpdatePosition(seconds float64) {
	c.controller.UpdatePosition(seconds)
}

// Playback returns the playback session.
func (c *Coordinator) Playback() model.PlaybackSession {
	return c.controller.Session()
}

// Wallet returns the wallet state.
func (c *Coordinator) Wallet() model.WalletState {
	return c.session.State()
}

// ConnectWallet connects the wallet session.
func (c *Coordinator) ConnectWallet(ctx context.Context) (model.WalletState, error) {
	return c.session.Connect(ctx)
}

// DisconnectWallet disconnects the wallet session. Playback of the
// already-paid current track continues; only future track changes are
// blocked.
func (c *Coordinator) DisconnectWallet() {
	c.session.Disconnect()
}

// SetAutoPay flips and persists the auto-pay switch.
func (c *Coordinator) SetAutoPay(ctx context.Context, enabled bool) error {
	if err := c.policy.SetAutoPay(ctx, enabled); err != nil {
		return fmt.Errorf("failed to persist auto-pay flag: %w", err)
	}
	c.publish(Event{Kind: "autopay", Data: enabled})
	return nil
}

// AutoPay reports the auto-pay switch.
func (c *Coordinator) AutoPay() bool {
	return c.policy.AutoPay()
}

// PendingConfirmation returns the parked play request, if any.
func (c *Coordinator) PendingConfirmation() *model.PendingConfirmation {
	return c.policy.Pending()
}

// Collections exposes the collection manager for the presentation layer.
func (c *Coordinator) Collections() *collection.Manager {
	return c.collections
}

// Catalog exposes the read-only track index.
func (c *Coordinator) Catalog() *catalog.Index {
	return c.catalog
}
