// Package wallet owns the external wallet boundary: the provider
// contract, the connection session and the cached balance.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// NotificationKind distinguishes the two external notification channels.
type NotificationKind string

const (
	// AccountsChanged carries the new account set; an empty set means the
	// user disconnected on the provider side.
	AccountsChanged NotificationKind = "accountsChanged"
	// NetworkChanged invalidates the whole session.
	NetworkChanged NotificationKind = "networkChanged"
)

// Notification is one asynchronous event from the provider.
type Notification struct {
	Kind     NotificationKind
	Accounts []string
	Network  string
}

// Provider is the narrow async contract with the external wallet
// capability. Implementations: SimProvider (in-process) and
// BridgeProvider (remote bridge over websocket).
type Provider interface {
	// RequestAccess asks the user for account access and returns the
	// granted addresses. An empty slice means access was declined.
	RequestAccess(ctx context.Context) ([]string, error)

	// GetBalance fetches the current balance of address.
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// SubmitPayment settles a payment and returns a transaction id.
	SubmitPayment(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)

	// Notifications is the merged account/network change channel. The
	// channel is closed when the provider shuts down.
	Notifications() <-chan Notification

	// Close releases provider resources.
	Close() error
}
