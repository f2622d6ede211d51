package collection

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cassette/catalog"
	"cassette/model"
	"cassette/store"

	"github.com/shopspring/decimal"
)

func testCatalog(t *testing.T) *catalog.Index {
	t.Helper()
	mk := func(id int64, title, price string) *model.Track {
		track, err := model.NewTrack(id, title, "Artist", decimal.RequireFromString(price), "0xpayee")
		if err != nil {
			t.Fatalf("NewTrack: %v", err)
		}
		return track
	}
	idx, err := catalog.NewIndex([]*model.Track{
		mk(1, "One", "0.001"),
		mk(2, "Two", "0.002"),
		mk(3, "Three", "0.0015"),
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func testManager(t *testing.T) (*Manager, store.Store, *catalog.Index) {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cat := testCatalog(t)
	m, err := NewManager(context.Background(), s, cat)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, s, cat
}

func TestToggleFavoritePairing(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	before := m.IsFavorite(1)
	for i := 0; i < 4; i++ {
		if _, err := m.ToggleFavorite(ctx, 1); err != nil {
			t.Fatalf("ToggleFavorite: %v", err)
		}
	}
	if m.IsFavorite(1) != before {
		t.Error("even toggle count must restore prior membership")
	}

	if _, err := m.ToggleFavorite(ctx, 1); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if m.IsFavorite(1) == before {
		t.Error("odd toggle count must flip membership")
	}
}

func TestToggleFavoriteUnknownTrack(t *testing.T) {
	m, _, _ := testManager(t)

	if _, err := m.ToggleFavorite(context.Background(), 999); !errors.Is(err, model.ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
	if len(m.Favorites()) != 0 {
		t.Error("favorites must stay empty")
	}
}

func TestCreatePlaylistInvalidName(t *testing.T) {
	m, _, _ := testManager(t)

	_, err := m.CreatePlaylist(context.Background(), "   \t ")
	if !errors.Is(err, model.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if len(m.Playlists()) != 0 {
		t.Error("playlist collection must be unchanged")
	}
}

func TestAddTrackTwiceFails(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	pl, err := m.CreatePlaylist(ctx, "Road Trip")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	if err := m.AddTrack(ctx, pl.ID, 2); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if err := m.AddTrack(ctx, pl.ID, 2); !errors.Is(err, model.ErrAlreadyPresent) {
		t.Fatalf("expected ErrAlreadyPresent, got %v", err)
	}

	got, err := m.GetPlaylist(pl.ID)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if len(got.TrackIDs) != 1 {
		t.Errorf("playlist length changed by failed add: %v", got.TrackIDs)
	}
}

func TestRemoveTrackAbsentIsNoop(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	pl, _ := m.CreatePlaylist(ctx, "Chill")
	if err := m.RemoveTrack(ctx, pl.ID, 3); err != nil {
		t.Errorf("removing an absent track must be a no-op, got %v", err)
	}
}

func TestHistoryRecordAndSummary(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	m.RecordPlay(ctx, 1, decimal.RequireFromString("0.001"))
	m.RecordPlay(ctx, 2, decimal.RequireFromString("0.002"))

	hist := m.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	// Most recent first.
	if hist[0].TrackID != 2 || hist[1].TrackID != 1 {
		t.Errorf("history not most-recent-first: %+v", hist)
	}

	sum := m.Summary()
	if sum.TotalPlays != 2 {
		t.Errorf("expected 2 plays, got %d", sum.TotalPlays)
	}
	if !sum.TotalSpent.Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("expected total 0.003, got %s", sum.TotalSpent)
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	m, s, cat := testManager(t)
	ctx := context.Background()

	pl, err := m.CreatePlaylist(ctx, "Favorites Mix")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	m.AddTrack(ctx, pl.ID, 1)
	m.AddTrack(ctx, pl.ID, 3)

	// A fresh manager over the same store must see an identical collection.
	restored, err := NewManager(ctx, s, cat)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	want := m.Playlists()
	got := restored.Playlists()
	if len(got) != len(want) {
		t.Fatalf("expected %d playlists, got %d", len(want), len(got))
	}
	if got[0].ID != want[0].ID || got[0].Name != want[0].Name {
		t.Errorf("playlist identity changed: %+v vs %+v", got[0], want[0])
	}
	if !reflect.DeepEqual(got[0].TrackIDs, want[0].TrackIDs) {
		t.Errorf("track ids changed: %v vs %v", got[0].TrackIDs, want[0].TrackIDs)
	}
	if !got[0].CreatedAtUTC.Equal(want[0].CreatedAtUTC) {
		t.Errorf("created-at changed: %v vs %v", got[0].CreatedAtUTC, want[0].CreatedAtUTC)
	}
}

func TestCorruptCollectionResetsToEmpty(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, store.KeyHistory, "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, store.KeyPlaylists, `{"version":99,"items":[]}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m, err := NewManager(ctx, s, testCatalog(t))
	if err != nil {
		t.Fatalf("corruption must self-heal, got %v", err)
	}
	if len(m.History()) != 0 {
		t.Error("corrupt history must reset to empty")
	}
	if len(m.Playlists()) != 0 {
		t.Error("unknown-version playlists must reset to empty")
	}
}

func TestFavoritesDropNonCatalogIDsOnLoad(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, store.KeyFavorites, `{"version":1,"items":[1,999,3]}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m, err := NewManager(ctx, s, testCatalog(t))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := m.Favorites(); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("expected [1 3], got %v", got)
	}
}
