package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletState is the cached view of the external wallet. It is mutated
// only by the wallet session; everyone else reads a copy.
type WalletState struct {
	Connected     bool            `json:"connected"`
	Address       string          `json:"address,omitempty"`
	BalanceAmount decimal.Decimal `json:"balanceAmount"`
}

// Receipt is the proof-of-payment record returned by a successful charge.
type Receipt struct {
	ID      string          `json:"id"`
	TrackID int64           `json:"trackId"`
	Amount  decimal.Decimal `json:"amount"`
	Payee   string          `json:"payee"`
	TxID    string          `json:"txId"`
	PaidAt  time.Time       `json:"paidAt"`
}
