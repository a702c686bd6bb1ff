package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"gridtactics/server/internal/sim"
	"gridtactics/server/internal/state"
	"gridtactics/server/logging"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Server message type identifiers.
const (
	TypeEvent         = "event"
	TypeSnapshot      = "snapshot"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
)

// Client message type identifiers.
const (
	TypeStop         = "stop"
	TypeSetTurnDelay = "setTurnDelay"
)

// Command reject reasons.
const (
	RejectInvalid    = "invalid_command"
	RejectQueueFull  = "queue_full"
	RejectBattleOver = "battle_over"
)

// EventMessage carries one battle notification.
type EventMessage struct {
	Ver   int           `json:"ver"`
	Type  string        `json:"type"`
	Event logging.Event `json:"event"`
}

// SnapshotMessage carries the full battlefield.
type SnapshotMessage struct {
	Ver      int                  `json:"ver"`
	Type     string               `json:"type"`
	Snapshot state.BattleSnapshot `json:"snapshot"`
}

// ClientMessage is the inbound envelope.
type ClientMessage struct {
	Ver     int    `json:"ver,omitempty"`
	Type    string `json:"type"`
	DelayMs *int64 `json:"delayMs,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
}

// CommandAckMessage confirms a staged command.
type CommandAckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
}

// CommandRejectMessage reports why a command was not staged.
type CommandRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
}

// EncodeEvent renders an event payload.
func EncodeEvent(event logging.Event) ([]byte, error) {
	return json.Marshal(EventMessage{Ver: Version, Type: TypeEvent, Event: event})
}

// EncodeSnapshot renders a snapshot payload.
func EncodeSnapshot(snap state.BattleSnapshot) ([]byte, error) {
	return json.Marshal(SnapshotMessage{Ver: Version, Type: TypeSnapshot, Snapshot: snap})
}

// EncodeCommandAck renders an acknowledgement.
func EncodeCommandAck(seq uint64) ([]byte, error) {
	return json.Marshal(CommandAckMessage{Ver: Version, Type: TypeCommandAck, Seq: seq})
}

// EncodeCommandReject renders a rejection.
func EncodeCommandReject(seq uint64, reason string) ([]byte, error) {
	return json.Marshal(CommandRejectMessage{Ver: Version, Type: TypeCommandReject, Seq: seq, Reason: reason})
}

// DecodeClientMessage parses an inbound frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	return msg, nil
}

// ClientCommand converts an inbound message into a sequencer intent.
func ClientCommand(msg ClientMessage, origin string) (sim.Command, bool) {
	switch msg.Type {
	case TypeStop:
		return sim.Command{Type: sim.CommandStop, Origin: origin}, true
	case TypeSetTurnDelay:
		if msg.DelayMs == nil || *msg.DelayMs < 0 {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:   sim.CommandSetTurnDelay,
			Origin: origin,
			Delay:  time.Duration(*msg.DelayMs) * time.Millisecond,
		}, true
	}
	return sim.Command{}, false
}
