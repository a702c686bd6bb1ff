package sim

import "time"

// CommandType enumerates the intents a presentation collaborator may send
// to a running battle.
type CommandType string

const (
	CommandStop         CommandType = "stop"
	CommandSetTurnDelay CommandType = "set_turn_delay"
)

// Command is an intent applied by the sequencer goroutine between steps.
type Command struct {
	Type     CommandType   `json:"type"`
	Origin   string        `json:"origin,omitempty"`
	IssuedAt time.Time     `json:"issuedAt"`
	Delay    time.Duration `json:"delay,omitempty"`
}
