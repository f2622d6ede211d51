package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cassette/catalog"
	"cassette/config"
	"cassette/core/collection"
	"cassette/core/gate"
	"cassette/core/player"
	"cassette/core/wallet"
	"cassette/logger"
	"cassette/storage"
	"cassette/store"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Start wires the whole coordinator and serves it until SIGINT/SIGTERM.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", logger.ErrorField(err))
	}
	logger.Info("catalog loaded", logger.Int("tracks", cat.Len()))
	if err := catalog.Watch(ctx, cfg.CatalogPath); err != nil {
		logger.Warn("catalog watch unavailable", logger.ErrorField(err))
	}

	storageBackend, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("failed to open persistent store", logger.ErrorField(err))
	}
	defer storageBackend.Close()
	logger.Info("persistent store ready", logger.String("backend", cfg.StoreBackend))

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to build wallet provider", logger.ErrorField(err))
	}
	defer provider.Close()

	session := wallet.NewSession(provider)
	paymentGate := gate.NewPaymentGate(session, cat)

	policy, err := gate.NewConfirmationPolicy(ctx, storageBackend, cfg.ConfirmSecret)
	if err != nil {
		logger.Fatal("failed to build confirmation policy", logger.ErrorField(err))
	}

	collections, err := collection.NewManager(ctx, storageBackend, cat)
	if err != nil {
		logger.Fatal("failed to restore collections", logger.ErrorField(err))
	}

	var transport player.Transport = player.NewNullTransport()
	if cfg.SpeakerTransport {
		spk, err := player.NewSpeakerTransport(cfg.MediaDir)
		if err != nil {
			logger.Fatal("failed to init speaker transport", logger.ErrorField(err))
		}
		transport = spk
	}
	controller := player.NewController(transport)

	var resolver player.AudioResolver
	if cfg.MinioEndpoint != "" {
		audioStore, err := storage.NewAudioStore(cfg)
		if err != nil {
			logger.Fatal("failed to init audio object store", logger.ErrorField(err))
		}
		resolver = audioStore
		logger.Info("audio object store ready", logger.String("bucket", cfg.MinioBucket))
	}

	coord := player.NewCoordinator(cat, session, paymentGate, policy, controller, collections, resolver)
	hub := NewEventHub(coord.Events())
	apiHandler := NewAPIHandler(coord)

	router := buildRouter(apiHandler, hub)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("coordinator listening", logger.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logger.ErrorField(err))
	}
}

// buildProvider selects the wallet capability implementation.
func buildProvider(ctx context.Context, cfg *config.Config) (wallet.Provider, error) {
	switch cfg.WalletProvider {
	case "bridge":
		return wallet.DialBridge(ctx, cfg.WalletBridgeURL)
	default:
		balance, err := decimal.NewFromString(cfg.SimBalance)
		if err != nil {
			balance = decimal.Zero
		}
		return wallet.NewSimProvider(cfg.SimAddress, balance, cfg.SimSettleLatency, cfg.SimFailureRate), nil
	}
}

// buildRouter registers every query and command endpoint.
func buildRouter(h *APIHandler, hub *EventHub) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Wallet
	router.HandleFunc("/api/wallet", h.GetWallet).Methods(http.MethodGet)
	router.HandleFunc("/api/wallet/connect", h.ConnectWallet).Methods(http.MethodPost)
	router.HandleFunc("/api/wallet/disconnect", h.DisconnectWallet).Methods(http.MethodPost)

	// Catalog
	router.HandleFunc("/api/tracks", h.ListTracks).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", h.GetTrack).Methods(http.MethodGet)

	// Playback
	router.HandleFunc("/api/playback", h.GetPlayback).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play/{id}", h.Play).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", h.TogglePlayPause).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", h.Next).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", h.Previous).Methods(http.MethodPost)
	router.HandleFunc("/api/player/stop", h.Stop).Methods(http.MethodPost)
	router.HandleFunc("/api/player/ended", h.TrackEnded).Methods(http.MethodPost)
	router.HandleFunc("/api/player/position", h.UpdatePosition).Methods(http.MethodPost)

	// Confirmation & settings
	router.HandleFunc("/api/confirmation/confirm", h.Confirm).Methods(http.MethodPost)
	router.HandleFunc("/api/confirmation/cancel", h.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/api/settings", h.GetSettings).Methods(http.MethodGet)
	router.HandleFunc("/api/settings/autopay", h.SetAutoPay).Methods(http.MethodPost)

	// History
	router.HandleFunc("/api/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/history", h.ClearHistory).Methods(http.MethodDelete)
	router.HandleFunc("/api/history/summary", h.GetHistorySummary).Methods(http.MethodGet)

	// Favorites
	router.HandleFunc("/api/favorites", h.GetFavorites).Methods(http.MethodGet)
	router.HandleFunc("/api/favorites", h.ClearFavorites).Methods(http.MethodDelete)
	router.HandleFunc("/api/favorites/{id}/toggle", h.ToggleFavorite).Methods(http.MethodPost)
	router.HandleFunc("/api/favorites/{id}", h.RemoveFavorite).Methods(http.MethodDelete)

	// Playlists
	router.HandleFunc("/api/playlists", h.ListPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.CreatePlaylist).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", h.GetPlaylist).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", h.DeletePlaylist).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks", h.AddPlaylistTrack).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", h.RemovePlaylistTrack).Methods(http.MethodDelete)

	// Event feed
	router.HandleFunc("/ws/events", hub.EventsHandler).Methods(http.MethodGet)

	return router
}
