package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"github.com/gorilla/mux"

	"gridtactics/server/internal/battle"
	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/net/ws"
	"gridtactics/server/internal/sim"
	"gridtactics/server/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Logger      telemetry.Logger
	Broadcaster *ws.Broadcaster
	Metrics     *telemetry.Counters
}

type startResponse struct {
	BattleID string `json:"battleId"`
	Seed     int64  `json:"seed"`
}

// NewHTTPHandler routes the battle API and the event stream.
func NewHTTPHandler(manager *battle.Manager, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = ws.NewBroadcaster(logger)
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Battles    []battle.Summary  `json:"battles"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Battles:    manager.List(),
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics.Snapshot()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/encounters", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"encounters": manager.Encounters()})
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/battles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"battles": manager.List()})
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/battles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req battle.StartRequest
		if r.Body != nil {
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		if req.MapID == "" || req.Difficulty == "" {
			httpError(w, "mapId and difficulty are required", nethttp.StatusBadRequest)
			return
		}

		b, err := manager.Start(r.Context(), req)
		if err != nil {
			status := nethttp.StatusInternalServerError
			switch {
			case errors.Is(err, catalog.ErrUnknownEncounter):
				status = nethttp.StatusNotFound
			case errors.Is(err, battle.ErrTooManyBattles):
				status = nethttp.StatusTooManyRequests
			case errors.Is(err, battle.ErrShuttingDown):
				status = nethttp.StatusServiceUnavailable
			default:
				logger.Printf("[http] start battle failed: %v", err)
			}
			httpError(w, err.Error(), status)
			return
		}
		writeJSON(w, nethttp.StatusCreated, startResponse{BattleID: b.ID, Seed: b.Seed})
	}).Methods(nethttp.MethodPost)

	router.HandleFunc("/battles/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		b, ok := manager.Get(mux.Vars(r)["id"])
		if !ok {
			httpError(w, "unknown battle", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, b.Snapshot())
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/battles/{id}/stop", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := mux.Vars(r)["id"]
		if err := manager.Stop(id); err != nil {
			switch {
			case errors.Is(err, battle.ErrUnknownBattle):
				httpError(w, "unknown battle", nethttp.StatusNotFound)
			case errors.Is(err, sim.ErrAlreadyEnded):
				httpError(w, "battle already ended", nethttp.StatusConflict)
			default:
				httpError(w, err.Error(), nethttp.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, nethttp.StatusAccepted, map[string]string{"status": "stopping", "battleId": id})
	}).Methods(nethttp.MethodPost)

	wsHandler := ws.NewHandler(func(id string) (ws.Battle, bool) {
		b, ok := manager.Get(id)
		if !ok {
			return nil, false
		}
		return b, true
	}, broadcaster, ws.HandlerConfig{Logger: logger})
	router.HandleFunc("/ws", wsHandler.Handle).Methods(nethttp.MethodGet)

	return router
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	data, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
