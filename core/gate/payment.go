// Package gate decides, per play request, whether payment is required
// and how it is collected: the manual-confirmation policy and the
// payment gate itself.
package gate

import (
	"context"
	"time"

	"cassette/catalog"
	"cassette/core/wallet"
	"cassette/logger"
	"cassette/model"

	"github.com/google/uuid"
)

// PaymentGate executes one charge per play request. It performs no
// retries; retry policy belongs to the caller, and the coordinator
// serializes play requests so at most one charge is outstanding.
type PaymentGate struct {
	session *wallet.Session
	catalog *catalog.Index
}

// NewPaymentGate wires the gate to the wallet session and the catalog.
func NewPaymentGate(session *wallet.Session, cat *catalog.Index) *PaymentGate {
	return &PaymentGate{session: session, catalog: cat}
}

// Charge validates preconditions, settles the track price against the
// payee and returns a receipt. On any failure no state has changed.
func (g *PaymentGate) Charge(ctx context.Context, trackID int64) (*model.Receipt, error) {
	if !g.session.State().Connected {
		return nil, model.ErrNotConnected
	}

	track, err := g.catalog.Get(trackID)
	if err != nil {
		return nil, err
	}

	txID, err := g.session.PerformPayment(ctx, track.PayeeAddress, track.PriceAmount)
	if err != nil {
		logger.Warn("charge failed",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return nil, err
	}

	receipt := &model.Receipt{
		ID:      uuid.New().String(),
		TrackID: trackID,
		Amount:  track.PriceAmount,
		Payee:   track.PayeeAddress,
		TxID:    txID,
		PaidAt:  time.Now().UTC(),
	}
	logger.Info("charge settled",
		logger.Int64("trackId", trackID),
		logger.String("amount", receipt.Amount.String()),
		logger.String("txId", txID))
	return receipt, nil
}
