package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryEntry records one paid play. Immutable once created; the history
// sequence is append-only, most recent first, with no dedup.
type HistoryEntry struct {
	TrackID      int64           `json:"trackId"`
	PricePaid    decimal.Decimal `json:"pricePaid"`
	TimestampUTC time.Time       `json:"timestampUtc"`
}

// HistorySummary aggregates the listening history for display.
type HistorySummary struct {
	TotalPlays int             `json:"totalPlays"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

// Playlist is an ordered sequence of track ids with no duplicates.
type Playlist struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
	TrackIDs     []int64   `json:"trackIds"`
}

// NewPlaylist validates the name and assigns a fresh id.
func NewPlaylist(name string) (*Playlist, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: name is empty after trimming", ErrInvalidName)
	}
	return &Playlist{
		ID:           uuid.New().String(),
		Name:         trimmed,
		CreatedAtUTC: time.Now().UTC(),
		TrackIDs:     []int64{},
	}, nil
}

// Contains reports whether the playlist already holds the track.
func (p *Playlist) Contains(trackID int64) bool {
	for _, id := range p.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}
