package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cassette/core/player"
	"cassette/logger"
	"cassette/model"

	"github.com/gorilla/mux"
)

// APIHandler exposes the coordinator's query and command methods over
// HTTP. It emits no UI effects; rendering belongs to the presentation
// layer entirely.
type APIHandler struct {
	coord *player.Coordinator
}

// NewAPIHandler wraps the coordinator.
func NewAPIHandler(coord *player.Coordinator) *APIHandler {
	return &APIHandler{coord: coord}
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: status < 400, Data: data}); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnknownTrack),
		errors.Is(err, model.ErrUnknownPlaylist),
		errors.Is(err, model.ErrNoPendingConfirmation):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotConnected),
		errors.Is(err, model.ErrUserRejected),
		errors.Is(err, model.ErrConfirmationFailed):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, model.ErrAlreadyPresent),
		errors.Is(err, model.ErrRequestInFlight),
		errors.Is(err, model.ErrNotPlaying):
		status = http.StatusConflict
	case errors.Is(err, model.ErrProviderUnavailable),
		errors.Is(err, model.ErrSettlementFailed):
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: err.Error()}); encErr != nil {
		logger.Error("failed to encode error response", logger.ErrorField(encErr))
	}
}

func pathTrackID(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, model.ErrUnknownTrack
	}
	return id, nil
}

// --- Wallet ---

func (h *APIHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Wallet())
}

func (h *APIHandler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	state, err := h.coord.ConnectWallet(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *APIHandler) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	h.coord.DisconnectWallet()
	respondJSON(w, http.StatusOK, h.coord.Wallet())
}

// --- Catalog ---

func (h *APIHandler) ListTracks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Catalog().All())
}

func (h *APIHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathTrackID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	track, err := h.coord.Catalog().Get(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// --- Playback ---

func (h *APIHandler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Playback())
}

func (h *APIHandler) Play(w http.ResponseWriter, r *http.Request) {
	id, err := pathTrackID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := h.coord.RequestPlay(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) TogglePlayPause(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.TogglePlayPause(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.coord.Playback())
}

func (h *APIHandler) Next(w http.ResponseWriter, r *http.Request) {
	result, err := h.coord.Next(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) Previous(w http.ResponseWriter, r *http.Request) {
	result, err := h.coord.Previous(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.coord.Stop()
	respondJSON(w, http.StatusOK, h.coord.Playback())
}

func (h *APIHandler) TrackEnded(w http.ResponseWriter, r *http.Request) {
	result, err := h.coord.TrackEnded(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds float64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.New("invalid position payload"))
		return
	}
	h.coord.UpdatePosition(body.Seconds)
	respondJSON(w, http.StatusOK, h.coord.Playback())
}

// --- Confirmation & auto-pay ---

func (h *APIHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.New("invalid confirmation payload"))
		return
	}
	result, err := h.coord.ConfirmPending(r.Context(), body.Secret)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.CancelPending(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"autoPay":             h.coord.AutoPay(),
		"pendingConfirmation": h.coord.PendingConfirmation(),
	})
}

func (h *APIHandler) SetAutoPay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.New("invalid auto-pay payload"))
		return
	}
	if err := h.coord.SetAutoPay(r.Context(), body.Enabled); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"autoPay": body.Enabled})
}

// --- History ---

func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Collections().History())
}

func (h *APIHandler) GetHistorySummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Collections().Summary())
}

func (h *APIHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Collections().ClearHistory(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- Favorites ---

func (h *APIHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Collections().Favorites())
}

func (h *APIHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathTrackID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	nowFavorite, err := h.coord.Collections().ToggleFavorite(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"favorite": nowFavorite})
}

func (h *APIHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathTrackID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.coord.Collections().RemoveFavorite(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *APIHandler) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Collections().ClearFavorites(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// --- Playlists ---

func (h *APIHandler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Collections().Playlists())
}

func (h *APIHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, err := h.coord.Collections().GetPlaylist(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pl)
}

func (h *APIHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.New("invalid playlist payload"))
		return
	}
	pl, err := h.coord.Collections().CreatePlaylist(r.Context(), body.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pl)
}

func (h *APIHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Collections().DeletePlaylist(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *APIHandler) AddPlaylistTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.New("invalid track payload"))
		return
	}
	if err := h.coord.Collections().AddTrack(r.Context(), mux.Vars(r)["id"], body.TrackID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *APIHandler) RemovePlaylistTrack(w http.ResponseWriter, r *http.Request) {
	trackID, err := strconv.ParseInt(mux.Vars(r)["trackId"], 10, 64)
	if err != nil {
		respondError(w, model.ErrUnknownTrack)
		return
	}
	if err := h.coord.Collections().RemoveTrack(r.Context(), mux.Vars(r)["id"], trackID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
