// Package collection owns the three persisted collections: listening
// history, favorites and playlists. Every mutation rewrites the whole
// collection through the persistent store; the sizes involved are small
// and local, so no write batching is done.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cassette/catalog"
	"cassette/logger"
	"cassette/model"
	"cassette/store"

	"github.com/shopspring/decimal"
)

// schemaVersion is bumped when a persisted document shape changes, so a
// future reader can migrate instead of silently misreading.
const schemaVersion = 1

type historyDoc struct {
	Version int                  `json:"version"`
	Items   []model.HistoryEntry `json:"items"`
}

type favoritesDoc struct {
	Version int     `json:"version"`
	Items   []int64 `json:"items"`
}

type playlistsDoc struct {
	Version int               `json:"version"`
	Items   []*model.Playlist `json:"items"`
}

// Manager owns History, Favorites and Playlists. All access goes through
// its methods; nothing else writes the underlying storage keys.
type Manager struct {
	storage store.Store
	catalog *catalog.Index

	mu        sync.Mutex
	history   []model.HistoryEntry
	favorites []int64
	playlists []*model.Playlist

	onChange func(what string)
}

// NewManager restores all three collections from storage. Malformed or
// unknown-version content resets that collection to empty; corruption is
// self-healing, never fatal.
func NewManager(ctx context.Context, storage store.Store, cat *catalog.Index) (*Manager, error) {
	m := &Manager{
		storage:   storage,
		catalog:   cat,
		history:   []model.HistoryEntry{},
		favorites: []int64{},
		playlists: []*model.Playlist{},
	}

	var hist historyDoc
	if loadDoc(ctx, storage, store.KeyHistory, &hist, func() int { return hist.Version }) {
		m.history = hist.Items
	}
	var favs favoritesDoc
	if loadDoc(ctx, storage, store.KeyFavorites, &favs, func() int { return favs.Version }) {
		m.favorites = favs.Items
	}
	var pls playlistsDoc
	if loadDoc(ctx, storage, store.KeyPlaylists, &pls, func() int { return pls.Version }) {
		m.playlists = pls.Items
	}

	// Favorites may only reference catalog tracks; anything else is a
	// leftover from an older catalog and gets dropped on load.
	kept := m.favorites[:0]
	for _, id := range m.favorites {
		if cat.IndexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	m.favorites = kept

	logger.Info("collections restored",
		logger.Int("history", len(m.history)),
		logger.Int("favorites", len(m.favorites)),
		logger.Int("playlists", len(m.playlists)))
	return m, nil
}

// loadDoc reads and decodes one persisted document. Returns false when
// the key is absent or the content is unusable.
func loadDoc(ctx context.Context, storage store.Store, key string, out interface{}, version func() int) bool {
	raw, found, err := storage.Get(ctx, key)
	if err != nil {
		logger.Error("failed to read persisted collection", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warn("persisted collection corrupt, resetting to empty",
			logger.String("key", key), logger.ErrorField(err))
		return false
	}
	if v := version(); v != schemaVersion {
		logger.Warn("persisted collection has unknown schema version, resetting to empty",
			logger.String("key", key), logger.Int("version", v))
		return false
	}
	return true
}

// OnChange registers a callback fired after every successful mutation
// with the name of the changed collection.
func (m *Manager) OnChange(fn func(what string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) notifyLocked(what string) {
	if m.onChange != nil {
		fn := m.onChange
		go fn(what)
	}
}

func (m *Manager) persistLocked(ctx context.Context, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := m.storage.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// --- History ---

// RecordPlay prepends a history entry for a successful charge. It is
// called exactly once per receipt, never on a failed or cancelled play.
func (m *Manager) RecordPlay(ctx context.Context, trackID int64, pricePaid decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := model.HistoryEntry{
		TrackID:      trackID,
		PricePaid:    pricePaid,
		TimestampUTC: time.Now().UTC(),
	}
	m.history = append([]model.HistoryEntry{entry}, m.history...)

	if err := m.persistLocked(ctx, store.KeyHistory, historyDoc{Version: schemaVersion, Items: m.history}); err != nil {
		return err
	}
	m.notifyLocked("history")
	return nil
}

// History returns the full sequence, most recent first.
func (m *Manager) History() []model.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Summary aggregates total plays and total spent.
func (m *Manager) Summary() model.HistorySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, e := range m.history {
		total = total.Add(e.PricePaid)
	}
	return model.HistorySummary{TotalPlays: len(m.history), TotalSpent: total}
}

// ClearHistory empties the history. Destructive intent is confirmed at
// the presentation boundary, not here.
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = []model.HistoryEntry{}
	if err := m.persistLocked(ctx, store.KeyHistory, historyDoc{Version: schemaVersion, Items: m.history}); err != nil {
		return err
	}
	m.notifyLocked("history")
	return nil
}

// --- Favorites ---

// ToggleFavorite flips membership: add if absent, remove if present.
// Returns the resulting membership.
func (m *Manager) ToggleFavorite(ctx context.Context, trackID int64) (bool, error) {
	if _, err := m.catalog.Get(trackID); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, id := range m.favorites {
		if id == trackID {
			idx = i
			break
		}
	}

	var nowFavorite bool
	if idx >= 0 {
		m.favorites = append(m.favorites[:idx], m.favorites[idx+1:]...)
	} else {
		m.favorites = append(m.favorites, trackID)
		nowFavorite = true
	}

	if err := m.persistLocked(ctx, store.KeyFavorites, favoritesDoc{Version: schemaVersion, Items: m.favorites}); err != nil {
		return nowFavorite, err
	}
	m.notifyLocked("favorites")
	return nowFavorite, nil
}

// RemoveFavorite removes trackID from the favorites; absent ids are a
// no-op.
func (m *Manager) RemoveFavorite(ctx context.Context, trackID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, id := range m.favorites {
		if id == trackID {
			m.favorites = append(m.favorites[:i], m.favorites[i+1:]...)
			if err := m.persistLocked(ctx, store.KeyFavorites, favoritesDoc{Version: schemaVersion, Items: m.favorites}); err != nil {
				return err
			}
			m.notifyLocked("favorites")
			return nil
		}
	}
	return nil
}

// ClearFavorites empties the favorites set.
func (m *Manager) ClearFavorites(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.favorites = []int64{}
	if err := m.persistLocked(ctx, store.KeyFavorites, favoritesDoc{Version: schemaVersion, Items: m.favorites}); err != nil {
		return err
	}
	m.notifyLocked("favorites")
	return nil
}

// Favorites returns the favorite ids in insertion order.
func (m *Manager) Favorites() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.favorites))
	copy(out, m.favorites)
	return out
}

// IsFavorite reports membership.
func (m *Manager) IsFavorite(trackID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.favorites {
		if id == trackID {
			return true
		}
	}
	return false
}

// --- Playlists ---

// CreatePlaylist validates the name and adds an empty playlist.
func (m *Manager) CreatePlaylist(ctx context.Context, name string) (*model.Playlist, error) {
	pl, err := model.NewPlaylist(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.playlists = append(m.playlists, pl)
	if err := m.persistLocked(ctx, store.KeyPlaylists, playlistsDoc{Version: schemaVersion, Items: m.playlists}); err != nil {
		m.playlists = m.playlists[:len(m.playlists)-1]
		return nil, err
	}
	m.notifyLocked("playlists")
	cp := *pl
	return &cp, nil
}

// DeletePlaylist removes the playlist with id.
func (m *Manager) DeletePlaylist(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, pl := range m.playlists {
		if pl.ID == id {
			m.playlists = append(m.playlists[:i], m.playlists[i+1:]...)
			if err := m.persistLocked(ctx, store.KeyPlaylists, playlistsDoc{Version: schemaVersion, Items: m.playlists}); err != nil {
				return err
			}
			m.notifyLocked("playlists")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", model.ErrUnknownPlaylist, id)
}

// AddTrack appends trackID to the playlist. The track must resolve in
// the catalog at the time of addition and must not already be present.
func (m *Manager) AddTrack(ctx context.Context, playlistID string, trackID int64) error {
	if _, err := m.catalog.Get(trackID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pl := m.findLocked(playlistID)
	if pl == nil {
		return fmt.Errorf("%w: %s", model.ErrUnknownPlaylist, playlistID)
	}
	if pl.Contains(trackID) {
		return fmt.Errorf("%w: track %d in playlist %s", model.ErrAlreadyPresent, trackID, playlistID)
	}

	pl.TrackIDs = append(pl.TrackIDs, trackID)
	if err := m.persistLocked(ctx, store.KeyPlaylists, playlistsDoc{Version: schemaVersion, Items: m.playlists}); err != nil {
		pl.TrackIDs = pl.TrackIDs[:len(pl.TrackIDs)-1]
		return err
	}
	m.notifyLocked("playlists")
	return nil
}

// RemoveTrack removes trackID from the playlist; an absent track is a
// no-op.
func (m *Manager) RemoveTrack(ctx context.Context, playlistID string, trackID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pl := m.findLocked(playlistID)
	if pl == nil {
		return fmt.Errorf("%w: %s", model.ErrUnknownPlaylist, playlistID)
	}

	for i, id := range pl.TrackIDs {
		if id == trackID {
			pl.TrackIDs = append(pl.TrackIDs[:i], pl.TrackIDs[i+1:]...)
			if err := m.persistLocked(ctx, store.KeyPlaylists, playlistsDoc{Version: schemaVersion, Items: m.playlists}); err != nil {
				return err
			}
			m.notifyLocked("playlists")
			return nil
		}
	}
	return nil
}

// Playlists returns copies of all playlists.
func (m *Manager) Playlists() []*model.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Playlist, len(m.playlists))
	for i, pl := range m.playlists {
		cp := *pl
		cp.TrackIDs = append([]int64{}, pl.TrackIDs...)
		out[i] = &cp
	}
	return out
}

// GetPlaylist returns a copy of one playlist.
func (m *Manager) GetPlaylist(id string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pl := m.findLocked(id)
	if pl == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownPlaylist, id)
	}
	cp := *pl
	cp.TrackIDs = append([]int64{}, pl.TrackIDs...)
	return &cp, nil
}

func (m *Manager) findLocked(id string) *model.Playlist {
	for _, pl := range m.playlists {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}
