package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"gridtactics/server/internal/net/proto"
	"gridtactics/server/internal/sim"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/telemetry"
)

// Battle is the view of a running battle a session needs.
type Battle interface {
	Snapshot() state.BattleSnapshot
	Enqueue(sim.Command) bool
	Finished() bool
}

// BattleLookup resolves a battle by id.
type BattleLookup func(id string) (Battle, bool)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades /ws requests into battle event streams.
type Handler struct {
	battles     BattleLookup
	broadcaster *Broadcaster
	logger      telemetry.Logger
	upgrader    websocket.Upgrader
}

func NewHandler(battles BattleLookup, broadcaster *Broadcaster, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		battles:     battles,
		broadcaster: broadcaster,
		logger:      logger,
		upgrader:    upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	battleID := r.URL.Query().Get("battle")
	if battleID == "" {
		nethttp.Error(w, "missing battle", nethttp.StatusBadRequest)
		return
	}
	b, ok := h.battles(battleID)
	if !ok {
		nethttp.Error(w, "unknown battle", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed for %s: %v", battleID, err)
		return
	}
	session := newSession(conn)
	defer session.Close()

	data, err := proto.EncodeSnapshot(b.Snapshot())
	if err != nil {
		h.logger.Printf("[ws] failed to marshal snapshot for %s: %v", battleID, err)
		return
	}
	if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}

	h.broadcaster.Subscribe(battleID, session)
	defer h.broadcaster.Unsubscribe(battleID, session)

	origin := "ws:" + r.RemoteAddr
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("[ws] discarding malformed message for %s: %v", battleID, err)
			continue
		}

		var reply []byte
		cmd, ok := proto.ClientCommand(msg, origin)
		switch {
		case !ok:
			reply, err = proto.EncodeCommandReject(msg.Seq, proto.RejectInvalid)
		case b.Finished():
			reply, err = proto.EncodeCommandReject(msg.Seq, proto.RejectBattleOver)
		case !b.Enqueue(cmd):
			reply, err = proto.EncodeCommandReject(msg.Seq, proto.RejectQueueFull)
		default:
			reply, err = proto.EncodeCommandAck(msg.Seq)
		}
		if err != nil {
			h.logger.Printf("[ws] failed to marshal response for %s: %v", battleID, err)
			continue
		}
		if err := session.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}
