package telemetry

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestWrapLoggerPrintf(t *testing.T) {
	var buf bytes.Buffer
	logger := WrapLogger(log.New(&buf, "", 0))
	logger.Printf("hello %s", "world")
	if got := strings.TrimSpace(buf.String()); got != "hello world" {
		t.Fatalf("expected wrapped output, got %q", got)
	}
}

func TestLoggerFuncNilSafe(t *testing.T) {
	var fn LoggerFunc
	fn.Printf("ignored")
}

func TestCountersAddAndStore(t *testing.T) {
	counters := NewCounters()
	counters.Add("damage_requests_total", 2)
	counters.Add("damage_requests_total", 3)
	counters.Store("queue_depth", 7)

	if got := counters.Value("damage_requests_total"); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := counters.Value("queue_depth"); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	keys := counters.Keys()
	if len(keys) != 2 || keys[0] != "damage_requests_total" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestPrefixedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Prefixed(WrapLogger(log.New(&buf, "", 0)), "[b_1] ")
	logger.Printf("turn %d", 4)
	if got := strings.TrimSpace(buf.String()); got != "[b_1] turn 4" {
		t.Fatalf("expected prefixed output, got %q", got)
	}
}
