package config

import (
	"strings"
	"testing"
	"time"

	"gridtactics/server/logging"
)

type envTestConfig struct {
	Port int `env:"GRIDTACTICS_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("GRIDTACTICS_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Addr)
	}
	simCfg := cfg.Sim()
	if simCfg.TurnDelay != 600*time.Millisecond || simCfg.DisplayStagger != 150*time.Millisecond || simCfg.MaxTurns != 200 {
		t.Fatalf("unexpected sim defaults: %+v", simCfg)
	}
	logCfg := cfg.Logging()
	if !logCfg.HasSink("console") || logCfg.MinimumSeverity != logging.SeverityInfo {
		t.Fatalf("unexpected logging defaults: %+v", logCfg)
	}
	if logCfg.SeverityFor("ws") != logging.SeverityDebug || logCfg.SeverityFor("console") != logging.SeverityInfo {
		t.Fatalf("unexpected sink severities: %+v", logCfg.SinkSeverity)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GRIDTACTICS_TURN_DELAY", "0s")
	t.Setenv("GRIDTACTICS_MAX_TURNS", "12")
	t.Setenv("GRIDTACTICS_SEED", "99")
	t.Setenv("GRIDTACTICS_KEEP_FINISHED", "3")
	t.Setenv("GRIDTACTICS_LOG_SINKS", "console,json")
	t.Setenv("GRIDTACTICS_LOG_SEVERITY", "debug")
	t.Setenv("GRIDTACTICS_LOG_JSON_PATH", "/tmp/events.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	battleCfg := cfg.Battle()
	if battleCfg.Sim.TurnDelay != 0 || battleCfg.Sim.MaxTurns != 12 || battleCfg.Seed != 99 || battleCfg.MaxFinished != 3 {
		t.Fatalf("unexpected battle config: %+v", battleCfg)
	}
	logCfg := cfg.Logging()
	if !logCfg.HasSink("json") || logCfg.JSON.FilePath != "/tmp/events.jsonl" {
		t.Fatalf("unexpected json sink config: %+v", logCfg)
	}
	if logCfg.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("expected debug severity, got %s", logCfg.MinimumSeverity)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("GRIDTACTICS_TURN_DELAY", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}
