package sim

import "time"

const (
	DefaultTurnDelay       = 600 * time.Millisecond
	DefaultDisplayStagger  = 150 * time.Millisecond
	DefaultMaxTurns        = 200
	DefaultCommandCapacity = 32
)

// Config paces a battle.
type Config struct {
	// TurnDelay separates TurnEnd from the next TurnStart.
	TurnDelay time.Duration
	// DisplayStagger separates the barrier and hp damage notifications
	// when a hit drains both pools.
	DisplayStagger time.Duration
	// MaxTurns ends the battle with ReasonTurnLimit. Zero disables the limit.
	MaxTurns int
	// CommandCapacity bounds the intent buffer.
	CommandCapacity int
}

// DefaultConfig returns the pacing used by the server.
func DefaultConfig() Config {
	return Config{
		TurnDelay:       DefaultTurnDelay,
		DisplayStagger:  DefaultDisplayStagger,
		MaxTurns:        DefaultMaxTurns,
		CommandCapacity: DefaultCommandCapacity,
	}
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.TurnDelay < 0 {
		normalized.TurnDelay = 0
	}
	if normalized.DisplayStagger < 0 {
		normalized.DisplayStagger = 0
	}
	if normalized.MaxTurns < 0 {
		normalized.MaxTurns = 0
	}
	if normalized.CommandCapacity <= 0 {
		normalized.CommandCapacity = DefaultCommandCapacity
	}
	return normalized
}
