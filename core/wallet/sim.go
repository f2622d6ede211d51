package wallet

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cassette/logger"
	"cassette/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimProvider simulates the external wallet capability in process:
// settlement takes a configurable latency and fails at a configurable
// rate. It stands in for a real signer the same way the original client
// stubbed its transactions.
type SimProvider struct {
	address  string
	latency  time.Duration
	failRate float64

	mu      sync.Mutex
	balance decimal.Decimal
	rng     *rand.Rand

	notifyCh  chan Notification
	closeOnce sync.Once
}

// NewSimProvider builds a simulator holding the given address and balance.
func NewSimProvider(address string, balance decimal.Decimal, latency time.Duration, failRate float64) *SimProvider {
	return &SimProvider{
		address:  address,
		latency:  latency,
		failRate: failRate,
		balance:  balance,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		notifyCh: make(chan Notification, 8),
	}
}

// RequestAccess grants access to the simulated account. An empty address
// simulates a declined request.
func (p *SimProvider) RequestAccess(ctx context.Context) ([]string, error) {
	if p.address == "" {
		return nil, model.ErrUserRejected
	}
	return []string{p.address}, nil
}

// GetBalance returns the simulated balance for address.
func (p *SimProvider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if address != p.address {
		return decimal.Zero, fmt.Errorf("unknown address %s", address)
	}
	return p.balance, nil
}

// SubmitPayment settles after the configured latency. On success the
// simulated on-chain balance decreases; on failure it is untouched.
func (p *SimProvider) SubmitPayment(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", model.ErrSettlementFailed, ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failRate > 0 && p.rng.Float64() < p.failRate {
		return "", fmt.Errorf("%w: simulated settlement failure", model.ErrSettlementFailed)
	}
	if p.balance.LessThan(amount) {
		return "", fmt.Errorf("%w: provider balance %s below %s", model.ErrSettlementFailed, p.balance, amount)
	}

	p.balance = p.balance.Sub(amount)
	txID := uuid.New().String()
	logger.Debug("simulated settlement",
		logger.String("to", toAddress),
		logger.String("amount", amount.String()),
		logger.String("txId", txID))
	return txID, nil
}

// Notifications returns the simulated notification channel.
func (p *SimProvider) Notifications() <-chan Notification {
	return p.notifyCh
}

// EmitAccountsChanged injects an account-set change, for tests and the
// simulator's own tooling.
func (p *SimProvider) EmitAccountsChanged(accounts []string) {
	p.notifyCh <- Notification{Kind: AccountsChanged, Accounts: accounts}
}

// EmitNetworkChanged injects a network change.
func (p *SimProvider) EmitNetworkChanged(network string) {
	p.notifyCh <- Notification{Kind: NetworkChanged, Network: network}
}

// Close closes the notification channel.
func (p *SimProvider) Close() error {
	p.closeOnce.Do(func() { close(p.notifyCh) })
	return nil
}
