package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gridtactics/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "combat.damage",
		Turn:     2,
		Time:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Actor:    logging.UnitRef("u_1"),
		Targets:  []logging.EntityRef{logging.UnitRef("u_2")},
		Severity: logging.SeverityWarn,
		Payload:  map[string]int{"hpDamage": 7},
		Extra:    map[string]any{"roll": 12},
		BattleID: "b_1",
	}
}

func TestConsoleSinkFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{UseColor: true})
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}

	line := buf.String()
	for _, want := range []string{
		"[b_1] T02 warn combat.damage unit:u_1 -> unit:u_2",
		`{"hpDamage":7}`,
		colorYellow,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONSinkWritesNewlineDelimitedEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{})
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write(logging.Event{Type: "turn.started", Turn: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["battleId"] != "b_1" || first["severity"] != "warn" || first["time"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected record: %v", first)
	}
}

func TestJSONSinkFlushesPerBatch(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{MaxBatch: 2, FlushInterval: time.Hour})
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered output before the batch fills, got %q", buf.String())
	}
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Fatalf("expected a full batch to flush 2 records, got %d", got)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestJSONSinkBuffersUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{FlushInterval: time.Hour})
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered output before flush, got %q", buf.String())
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected close to flush buffered events")
	}
}

func TestMemorySinkIsolatesRecordedEvents(t *testing.T) {
	sink := NewMemorySink()
	event := sampleEvent()
	sink.Publish(context.Background(), event)
	event.Extra["roll"] = 1
	event.Targets[0].ID = "u_9"

	got := sink.EventsOfType("combat.damage")
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if got[0].Extra["roll"] != 12 || got[0].Targets[0].ID != "u_2" {
		t.Fatalf("recorded event was mutated: %+v", got[0])
	}

	if len(sink.ForBattle("b_1")) != 1 || len(sink.ForBattle("b_2")) != 0 {
		t.Fatal("expected battle filter to match recorded battle id")
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatal("expected reset to clear events")
	}
}
