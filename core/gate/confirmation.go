package gate

import (
	"context"
	"strconv"
	"sync"

	"cassette/core/auth"
	"cassette/logger"
	"cassette/model"
	"cassette/store"
)

// ConfirmationPolicy is the optional manual-confirmation step that can
// intercept a play request before the payment gate runs. With auto-pay
// on, every request short-circuits straight through; with auto-pay off,
// one request at a time waits for the secret.
type ConfirmationPolicy struct {
	storage    store.Store
	secretHash string

	mu      sync.Mutex
	autoPay bool
	pending *model.PendingConfirmation
}

// NewConfirmationPolicy hashes the secret and restores the persisted
// auto-pay flag. A malformed persisted flag falls back to the default
// (auto-pay on, as the original client shipped it).
func NewConfirmationPolicy(ctx context.Context, storage store.Store, secret string) (*ConfirmationPolicy, error) {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	p := &ConfirmationPolicy{
		storage:    storage,
		secretHash: hash,
		autoPay:    true,
	}

	raw, found, err := storage.Get(ctx, store.KeyAutoPay)
	if err != nil {
		return nil, err
	}
	if found {
		if v, err := strconv.ParseBool(raw); err == nil {
			p.autoPay = v
		} else {
			logger.Warn("persisted auto-pay flag corrupt, resetting to default",
				logger.String("value", raw))
		}
	}
	return p, nil
}

// AutoPay reports whether the confirmation step is bypassed.
func (p *ConfirmationPolicy) AutoPay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoPay
}

// SetAutoPay flips the mode and persists it.
func (p *ConfirmationPolicy) SetAutoPay(ctx context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoPay = enabled
	return p.storage.Set(ctx, store.KeyAutoPay, strconv.FormatBool(enabled))
}

// Intercept runs the policy for a play request on trackID. It returns
// true when the request is cleared to proceed to the payment gate, and
// false when it is now pending user input. A request arriving while
// another is pending is rejected, never allowed to overwrite the pending
// target: overwriting would let a second track ride the first track's
// confirmation.
func (p *ConfirmationPolicy) Intercept(trackID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.autoPay {
		return true, nil
	}
	if p.pending != nil {
		return false, model.ErrRequestInFlight
	}
	p.pending = &model.PendingConfirmation{TrackID: trackID}
	logger.Debug("play request pending confirmation", logger.Int64("trackId", trackID))
	return false, nil
}

// Confirm resolves the pending request with a secret. A mismatched
// secret fails and keeps the pending request for re-entry; a match
// clears it and returns the track to charge.
func (p *ConfirmationPolicy) Confirm(secret string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return 0, model.ErrNoPendingConfirmation
	}
	if !auth.CheckSecret(secret, p.secretHash) {
		logger.Debug("confirmation secret mismatch",
			logger.Int64("trackId", p.pending.TrackID))
		return 0, model.ErrConfirmationFailed
	}

	trackID := p.pending.TrackID
	p.pending = nil
	return trackID, nil
}

// Cancel drops the pending request without charging.
func (p *ConfirmationPolicy) Cancel() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return 0, model.ErrNoPendingConfirmation
	}
	trackID := p.pending.TrackID
	p.pending = nil
	logger.Debug("pending confirmation cancelled", logger.Int64("trackId", trackID))
	return trackID, nil
}

// Pending returns a copy of the pending confirmation, or nil.
func (p *ConfirmationPolicy) Pending() *model.PendingConfirmation {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return nil
	}
	pc := *p.pending
	return &pc
}

// State reports the confirmation state machine position.
func (p *ConfirmationPolicy) State() model.ConfirmationState {
	if p.Pending() != nil {
		return model.ConfirmationPending
	}
	return model.ConfirmationClear
}
