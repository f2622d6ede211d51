package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cassette/catalog"
	"cassette/core/collection"
	"cassette/core/gate"
	"cassette/core/player"
	"cassette/core/wallet"
	"cassette/model"
	"cassette/store"

	"github.com/shopspring/decimal"
)

func testRouter(t *testing.T, balance string) http.Handler {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	mk := func(id int64, title, price string) *model.Track {
		track, err := model.NewTrack(id, title, "Artist", decimal.RequireFromString(price), "0xpayee")
		if err != nil {
			t.Fatalf("NewTrack: %v", err)
		}
		return track
	}
	cat, err := catalog.NewIndex([]*model.Track{
		mk(1, "First", "0.001"),
		mk(2, "Second", "0.002"),
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	provider := wallet.NewSimProvider("0xtest", decimal.RequireFromString(balance), 0, 0)
	session := wallet.NewSession(provider)
	paymentGate := gate.NewPaymentGate(session, cat)

	policy, err := gate.NewConfirmationPolicy(ctx, s, "1234")
	if err != nil {
		t.Fatalf("NewConfirmationPolicy: %v", err)
	}
	collections, err := collection.NewManager(ctx, s, cat)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	controller := player.NewController(player.NewNullTransport())
	coord := player.NewCoordinator(cat, session, paymentGate, policy, controller, collections, nil)
	return buildRouter(NewAPIHandler(coord), NewEventHub(coord.Events()))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, rec.Body.String())
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v: %s", err, envelope.Data)
		}
	}
}

func TestPlayRequiresConnection(t *testing.T) {
	router := testRouter(t, "0.01")

	rec := doJSON(t, router, http.MethodPost, "/api/player/play/1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPlayUnknownTrack(t *testing.T) {
	router := testRouter(t, "0.01")
	doJSON(t, router, http.MethodPost, "/api/wallet/connect", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/player/play/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPlayInsufficientFunds(t *testing.T) {
	router := testRouter(t, "0.0005")
	doJSON(t, router, http.MethodPost, "/api/wallet/connect", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/player/play/1", nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConnectPlayAndHistory(t *testing.T) {
	router := testRouter(t, "0.01")

	rec := doJSON(t, router, http.MethodPost, "/api/wallet/connect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state model.WalletState
	decodeData(t, rec, &state)
	if !state.Connected || state.Address != "0xtest" {
		t.Fatalf("bad wallet state: %+v", state)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/player/play/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("play: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result player.PlayResult
	decodeData(t, rec, &result)
	if result.Pending || result.Receipt == nil || result.Receipt.TrackID != 1 {
		t.Fatalf("bad play result: %+v", result)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/playback", nil)
	var pb model.PlaybackSession
	decodeData(t, rec, &pb)
	if pb.State != model.PlayerPlaying || pb.CurrentTrackID == nil || *pb.CurrentTrackID != 1 {
		t.Fatalf("bad playback session: %+v", pb)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/history", nil)
	var hist []model.HistoryEntry
	decodeData(t, rec, &hist)
	if len(hist) != 1 || hist[0].TrackID != 1 {
		t.Fatalf("bad history: %+v", hist)
	}
}

func TestManualConfirmationOverHTTP(t *testing.T) {
	router := testRouter(t, "0.01")
	doJSON(t, router, http.MethodPost, "/api/wallet/connect", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/settings/autopay", map[string]bool{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("autopay: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/player/play/2", nil)
	var result player.PlayResult
	decodeData(t, rec, &result)
	if !result.Pending {
		t.Fatalf("expected pending result, got %+v", result)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/confirmation/confirm", map[string]string{"secret": "wrong"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong secret: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/confirmation/confirm", map[string]string{"secret": "1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &result)
	if result.Receipt == nil || result.Receipt.TrackID != 2 {
		t.Fatalf("bad confirm result: %+v", result)
	}
}

func TestCreatePlaylistValidation(t *testing.T) {
	router := testRouter(t, "0.01")

	rec := doJSON(t, router, http.MethodPost, "/api/playlists", map[string]string{"name": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/playlists", map[string]string{"name": "Morning"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var pl model.Playlist
	decodeData(t, rec, &pl)
	if pl.ID == "" || pl.Name != "Morning" {
		t.Fatalf("bad playlist: %+v", pl)
	}

	// Duplicate track adds are conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/playlists/"+pl.ID+"/tracks", map[string]int64{"trackId": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/playlists/"+pl.ID+"/tracks", map[string]int64{"trackId": 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate add: expected 409, got %d", rec.Code)
	}
}

func TestFavoritesToggleOverHTTP(t *testing.T) {
	router := testRouter(t, "0.01")

	rec := doJSON(t, router, http.MethodPost, "/api/favorites/1/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", rec.Code)
	}
	var toggled map[string]bool
	decodeData(t, rec, &toggled)
	if !toggled["favorite"] {
		t.Error("first toggle must add")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/favorites", nil)
	var favs []int64
	decodeData(t, rec, &favs)
	if len(favs) != 1 || favs[0] != 1 {
		t.Fatalf("bad favorites: %v", favs)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/favorites/999/toggle", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown track: expected 404, got %d", rec.Code)
	}
}

func TestNextWithoutPlayback(t *testing.T) {
	router := testRouter(t, "0.01")
	doJSON(t, router, http.MethodPost, "/api/wallet/connect", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/player/next", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}
