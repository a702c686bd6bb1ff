package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"gridtactics/server/internal/battle"
	"gridtactics/server/internal/sim"
	"gridtactics/server/logging"
)

// Config is the process configuration read from GRIDTACTICS_* variables.
type Config struct {
	Addr string `env:"GRIDTACTICS_ADDR" envDefault:":8080"`

	TurnDelay      time.Duration `env:"GRIDTACTICS_TURN_DELAY"      envDefault:"600ms"`
	DisplayStagger time.Duration `env:"GRIDTACTICS_DISPLAY_STAGGER" envDefault:"150ms"`
	MaxTurns       int           `env:"GRIDTACTICS_MAX_TURNS"       envDefault:"200"`
	MaxBattles     int           `env:"GRIDTACTICS_MAX_BATTLES"     envDefault:"16"`
	KeepFinished   int           `env:"GRIDTACTICS_KEEP_FINISHED"   envDefault:"64"`
	Seed           int64         `env:"GRIDTACTICS_SEED"`

	LogSinks     []string      `env:"GRIDTACTICS_LOG_SINKS"      envDefault:"console" envSeparator:","`
	LogSeverity  string        `env:"GRIDTACTICS_LOG_SEVERITY"   envDefault:"info"`
	LogBuffer    int           `env:"GRIDTACTICS_LOG_BUFFER"     envDefault:"512"`
	LogJSONPath  string        `env:"GRIDTACTICS_LOG_JSON_PATH"`
	LogJSONFlush time.Duration `env:"GRIDTACTICS_LOG_JSON_FLUSH" envDefault:"2s"`
	LogColor     bool          `env:"GRIDTACTICS_LOG_COLOR"`

	OTelEnabled  bool   `env:"GRIDTACTICS_OTEL_ENABLED"  envDefault:"true"`
	OTelEndpoint string `env:"GRIDTACTICS_OTEL_ENDPOINT"`
	ServiceName  string `env:"GRIDTACTICS_SERVICE_NAME"  envDefault:"gridtactics"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sim returns the sequencer pacing.
func (c Config) Sim() sim.Config {
	return sim.Config{
		TurnDelay:       c.TurnDelay,
		DisplayStagger:  c.DisplayStagger,
		MaxTurns:        c.MaxTurns,
		CommandCapacity: sim.DefaultCommandCapacity,
	}
}

// Battle returns the manager configuration.
func (c Config) Battle() battle.Config {
	return battle.Config{
		Sim:         c.Sim(),
		Seed:        c.Seed,
		MaxRunning:  c.MaxBattles,
		MaxFinished: c.KeepFinished,
	}
}

// Logging maps the log settings onto the router configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if len(c.LogSinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	}
	if c.LogBuffer > 0 {
		cfg.BufferSize = c.LogBuffer
	}
	cfg.MinimumSeverity = logging.ParseSeverity(c.LogSeverity)
	cfg.JSON.FilePath = c.LogJSONPath
	if c.LogJSONFlush > 0 {
		cfg.JSON.FlushInterval = c.LogJSONFlush
	}
	cfg.Console.UseColor = c.LogColor
	// Watchers get every battle event regardless of the console floor.
	cfg.SinkSeverity = map[string]logging.Severity{"ws": logging.SeverityDebug}
	cfg.Fields = map[string]any{"service": c.ServiceName}
	return cfg
}
