package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cassette/logger"
	"cassette/model"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// BridgeProvider reaches a custodial wallet bridge over a websocket. The
// bridge speaks a small JSON frame protocol: request/response pairs
// correlated by id, plus unsolicited event frames for account and network
// changes.
type BridgeProvider struct {
	conn *websocket.Conn

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan bridgeFrame

	notifyCh  chan Notification
	closeOnce sync.Once
}

type bridgeFrame struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	// Event frames.
	Event    string   `json:"event,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	Network  string   `json:"network,omitempty"`
}

// DialBridge connects to the wallet bridge. A connection failure is
// reported as ProviderUnavailable: no wallet capability is present.
func DialBridge(ctx context.Context, url string) (*BridgeProvider, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", model.ErrProviderUnavailable, url, err)
	}

	p := &BridgeProvider{
		conn:     conn,
		pending:  make(map[int64]chan bridgeFrame),
		notifyCh: make(chan Notification, 8),
	}
	go p.readPump()
	return p, nil
}

// readPump routes incoming frames to response waiters or the notification
// channel until the connection drops.
func (p *BridgeProvider) readPump() {
	defer p.Close()
	for {
		var frame bridgeFrame
		if err := p.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("wallet bridge read error", logger.ErrorField(err))
			}
			return
		}

		switch frame.Event {
		case "accountsChanged":
			p.notifyCh <- Notification{Kind: AccountsChanged, Accounts: frame.Accounts}
		case "networkChanged":
			p.notifyCh <- Notification{Kind: NetworkChanged, Network: frame.Network}
		case "":
			p.mu.Lock()
			ch, ok := p.pending[frame.ID]
			if ok {
				delete(p.pending, frame.ID)
			}
			p.mu.Unlock()
			if ok {
				ch <- frame
			}
		}
	}
}

// call sends one request frame and waits for its response.
func (p *BridgeProvider) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	ch := make(chan bridgeFrame, 1)
	p.pending[id] = ch
	err = p.conn.WriteJSON(bridgeFrame{ID: id, Method: method, Params: raw})
	p.mu.Unlock()
	if err != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: write %s: %v", model.ErrProviderUnavailable, method, err)
	}

	select {
	case frame := <-ch:
		if frame.Error != "" {
			return nil, fmt.Errorf("bridge %s: %s", method, frame.Error)
		}
		return frame.Result, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// RequestAccess asks the bridge for account access.
func (p *BridgeProvider) RequestAccess(ctx context.Context) ([]string, error) {
	result, err := p.call(ctx, "requestAccess", nil)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, model.ErrUserRejected
	}
	return accounts, nil
}

// GetBalance fetches the balance of address from the bridge.
func (p *BridgeProvider) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	result, err := p.call(ctx, "getBalance", map[string]string{"address": address})
	if err != nil {
		return decimal.Zero, err
	}
	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad balance %q from bridge: %w", raw, err)
	}
	return balance, nil
}

// SubmitPayment asks the bridge to settle a payment.
func (p *BridgeProvider) SubmitPayment(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	result, err := p.call(ctx, "submitPayment", map[string]string{
		"to":     toAddress,
		"amount": amount.String(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSettlementFailed, err)
	}
	var txID string
	if err := json.Unmarshal(result, &txID); err != nil {
		return "", fmt.Errorf("failed to decode tx id: %w", err)
	}
	return txID, nil
}

// Notifications returns the bridge's event channel.
func (p *BridgeProvider) Notifications() <-chan Notification {
	return p.notifyCh
}

// Close shuts the connection and the notification channel.
func (p *BridgeProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
		close(p.notifyCh)
	})
	return err
}
