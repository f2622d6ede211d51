package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Track represents one catalog item. Tracks are immutable after catalog
// load; PlayCount is the only field the coordinator updates locally.
type Track struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Artist       string          `json:"artist"`
	PriceAmount  decimal.Decimal `json:"priceAmount"`
	PayeeAddress string          `json:"payeeAddress"`
	PlayCount    int64           `json:"playCount"`
	AudioURL     string          `json:"audioUrl,omitempty"`  // direct stream URL, if any
	ObjectKey    string          `json:"objectKey,omitempty"` // object-storage key for the audio file
}

// NewTrack validates and builds a Track. The catalog loader goes through
// here so a malformed catalog file cannot produce a half-formed record.
func NewTrack(id int64, title, artist string, price decimal.Decimal, payee string) (*Track, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("track %d: title must not be empty", id)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("track %d: price must be positive, got %s", id, price)
	}
	if strings.TrimSpace(payee) == "" {
		return nil, fmt.Errorf("track %d: payee address must not be empty", id)
	}
	return &Track{
		ID:           id,
		Title:        strings.TrimSpace(title),
		Artist:       strings.TrimSpace(artist),
		PriceAmount:  price,
		PayeeAddress: payee,
	}, nil
}
