// Package catalog holds the static, read-only track index. It is the
// single source of price and payee metadata; nothing mutates it after
// load except the local play counters.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"cassette/logger"
	"cassette/model"

	"github.com/shopspring/decimal"
)

// Index is the read-only track lookup. The track slice and the id index
// are fixed at construction; per-track play counters are the only
// mutable cells and are updated atomically.
type Index struct {
	tracks []*model.Track
	byID   map[int64]int
	counts []atomic.Int64
}

// rawTrack is the on-disk catalog shape before validation.
type rawTrack struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	PriceAmount  string `json:"priceAmount"`
	PayeeAddress string `json:"payeeAddress"`
	PlayCount    int64  `json:"playCount"`
	AudioURL     string `json:"audioUrl"`
	ObjectKey    string `json:"objectKey"`
}

// Load reads the catalog from path. When path is empty or the file does
// not exist, the built-in demo catalog is used instead.
func Load(path string) (*Index, error) {
	if path == "" {
		return NewIndex(demoTracks())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("catalog file not found, using demo catalog", logger.String("path", path))
			return NewIndex(demoTracks())
		}
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var raw []rawTrack
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	tracks := make([]*model.Track, 0, len(raw))
	for _, rt := range raw {
		price, err := decimal.NewFromString(rt.PriceAmount)
		if err != nil {
			return nil, fmt.Errorf("track %d: bad price %q: %w", rt.ID, rt.PriceAmount, err)
		}
		t, err := model.NewTrack(rt.ID, rt.Title, rt.Artist, price, rt.PayeeAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid catalog entry: %w", err)
		}
		t.PlayCount = rt.PlayCount
		t.AudioURL = rt.AudioURL
		t.ObjectKey = rt.ObjectKey
		tracks = append(tracks, t)
	}
	return NewIndex(tracks)
}

// NewIndex builds an index over the given tracks. Track ids must be unique.
func NewIndex(tracks []*model.Track) (*Index, error) {
	idx := &Index{
		tracks: tracks,
		byID:   make(map[int64]int, len(tracks)),
		counts: make([]atomic.Int64, len(tracks)),
	}
	for i, t := range tracks {
		if _, dup := idx.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate track id %d in catalog", t.ID)
		}
		idx.byID[t.ID] = i
		idx.counts[i].Store(t.PlayCount)
	}
	return idx, nil
}

// Len returns the catalog size.
func (idx *Index) Len() int {
	return len(idx.tracks)
}

// Get returns the track for id, or ErrUnknownTrack.
func (idx *Index) Get(id int64) (*model.Track, error) {
	i, ok := idx.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", model.ErrUnknownTrack, id)
	}
	return idx.snapshot(i), nil
}

// All returns all tracks in catalog order.
func (idx *Index) All() []*model.Track {
	out := make([]*model.Track, len(idx.tracks))
	for i := range idx.tracks {
		out[i] = idx.snapshot(i)
	}
	return out
}

// IndexOf returns the catalog position of id, or -1.
func (idx *Index) IndexOf(id int64) int {
	i, ok := idx.byID[id]
	if !ok {
		return -1
	}
	return i
}

// NextID returns the id following id in catalog order, wrapping around.
func (idx *Index) NextID(id int64) (int64, error) {
	i, ok := idx.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", model.ErrUnknownTrack, id)
	}
	return idx.tracks[(i+1)%len(idx.tracks)].ID, nil
}

// PrevID returns the id preceding id in catalog order, wrapping around.
func (idx *Index) PrevID(id int64) (int64, error) {
	i, ok := idx.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", model.ErrUnknownTrack, id)
	}
	n := len(idx.tracks)
	return idx.tracks[(i-1+n)%n].ID, nil
}

// IncrementPlayCount bumps the local play counter for id. Unknown ids are
// ignored; the caller has already validated the track by charging for it.
func (idx *Index) IncrementPlayCount(id int64) {
	if i, ok := idx.byID[id]; ok {
		idx.counts[i].Add(1)
	}
}

// snapshot copies the track with the current play counter applied.
func (idx *Index) snapshot(i int) *model.Track {
	t := *idx.tracks[i]
	t.PlayCount = idx.counts[i].Load()
	return &t
}
