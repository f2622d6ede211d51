package wallet

import (
	"context"
	"fmt"
	"sync"

	"cassette/logger"
	"cassette/model"

	"github.com/shopspring/decimal"
)

// Session owns the wallet connection lifecycle and the cached balance.
// All mutation happens behind one mutex; provider notifications are
// applied through the same mutex, so they can never land in the middle
// of a settlement.
type Session struct {
	provider Provider

	mu              sync.Mutex
	state           model.WalletState
	restartRequired bool

	watchOnce sync.Once
	onChange  func(model.WalletState)
}

// NewSession wraps a provider. The notification watcher starts on the
// first successful Connect.
func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// OnChange registers a callback fired (outside the lock) after every
// state change. Used by the coordinator to publish wallet events.
func (s *Session) OnChange(fn func(model.WalletState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Connect requests account access, fetches the balance and begins
// observing the provider's notification channels.
func (s *Session) Connect(ctx context.Context) (model.WalletState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restartRequired {
		return s.state, fmt.Errorf("%w: network changed, restart required", model.ErrProviderUnavailable)
	}
	if s.provider == nil {
		return s.state, model.ErrProviderUnavailable
	}

	accounts, err := s.provider.RequestAccess(ctx)
	if err != nil {
		return s.state, fmt.Errorf("failed to request wallet access: %w", err)
	}
	if len(accounts) == 0 {
		return s.state, model.ErrUserRejected
	}
	address := accounts[0]

	balance, err := s.provider.GetBalance(ctx, address)
	if err != nil {
		return s.state, fmt.Errorf("failed to fetch balance for %s: %w", address, err)
	}

	s.state = model.WalletState{
		Connected:     true,
		Address:       address,
		BalanceAmount: balance,
	}
	logger.Info("wallet connected",
		logger.String("address", address),
		logger.String("balance", balance.String()))

	s.watchOnce.Do(func() {
		go s.watch()
	})

	s.notifyLocked()
	return s.state, nil
}

// Disconnect resets the session to disconnected defaults. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	if !s.state.Connected {
		return
	}
	s.state = model.WalletState{BalanceAmount: decimal.Zero}
	logger.Info("wallet disconnected")
	s.notifyLocked()
}

// State returns a copy of the current wallet state.
func (s *Session) State() model.WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RestartRequired reports whether a network change invalidated the
// session. Recovery is a process restart, not a resync.
func (s *Session) RestartRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartRequired
}

// PerformPayment checks the cached balance and settles through the
// provider. The session lock is held across the external call, which is
// what guarantees notifications apply strictly after settlement and that
// the balance never moves on a failed charge.
func (s *Session) PerformPayment(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restartRequired {
		return "", fmt.Errorf("%w: network changed, restart required", model.ErrProviderUnavailable)
	}
	if !s.state.Connected {
		return "", model.ErrNotConnected
	}
	if s.state.BalanceAmount.LessThan(amount) {
		return "", fmt.Errorf("%w: balance %s, need %s",
			model.ErrInsufficientFunds, s.state.BalanceAmount, amount)
	}

	txID, err := s.provider.SubmitPayment(ctx, toAddress, amount)
	if err != nil {
		// Balance stays untouched; it must not be trusted blindly after a
		// failure either, so the next connect refetches it.
		return "", err
	}

	s.state.BalanceAmount = s.state.BalanceAmount.Sub(amount)
	s.notifyLocked()
	return txID, nil
}

// watch applies provider notifications. Because every branch takes the
// session mutex, a notification that arrives mid-settlement waits for
// the settlement to resolve.
func (s *Session) watch() {
	for n := range s.provider.Notifications() {
		switch n.Kind {
		case AccountsChanged:
			if len(n.Accounts) == 0 {
				logger.Info("provider account set emptied, disconnecting")
				s.Disconnect()
				continue
			}
			// Any non-empty account change is treated as a fresh connect,
			// including a change back to the same account.
			logger.Info("provider account set changed, reconnecting",
				logger.String("address", n.Accounts[0]))
			s.Disconnect()
			if _, err := s.Connect(context.Background()); err != nil {
				logger.Error("reconnect after account change failed", logger.ErrorField(err))
			}
		case NetworkChanged:
			s.mu.Lock()
			s.restartRequired = true
			s.disconnectLocked()
			s.mu.Unlock()
			logger.Warn("network changed, wallet session invalidated until restart",
				logger.String("network", n.Network))
		}
	}
}

// notifyLocked fires the change callback with a copy of the state. The
// callback runs on its own goroutine so a slow subscriber cannot hold
// the session lock.
func (s *Session) notifyLocked() {
	if s.onChange == nil {
		return
	}
	snapshot := s.state
	fn := s.onChange
	go fn(snapshot)
}
