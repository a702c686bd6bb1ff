package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"gridtactics/server/logging"
)

const (
	colorReset  = "\x1b[0m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
)

// ConsoleSink prints one line per event:
//
//	[b_1f2e] T03 warn combat.damage unit:u_1 -> unit:u_2 {"hpDamage":7}
type ConsoleSink struct {
	logger   *log.Logger
	useColor bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	if w == nil {
		w = io.Discard
	}
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags), useColor: cfg.UseColor}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	var b strings.Builder
	if event.BattleID != "" {
		fmt.Fprintf(&b, "[%s] ", event.BattleID)
	}
	fmt.Fprintf(&b, "T%02d %s %s %s", event.Turn, event.Severity, event.Type, entity(event.Actor))
	if len(event.Targets) > 0 {
		names := make([]string, len(event.Targets))
		for i, target := range event.Targets {
			names[i] = entity(target)
		}
		b.WriteString(" -> ")
		b.WriteString(strings.Join(names, ","))
	}
	if event.Payload != nil {
		b.WriteByte(' ')
		if data, err := json.Marshal(event.Payload); err == nil {
			b.Write(data)
		} else {
			fmt.Fprintf(&b, "%v", event.Payload)
		}
	}
	s.logger.Print(s.paint(event.Severity, b.String()))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func (s *ConsoleSink) paint(sev logging.Severity, line string) string {
	if !s.useColor {
		return line
	}
	switch {
	case sev >= logging.SeverityError:
		return colorRed + line + colorReset
	case sev == logging.SeverityWarn:
		return colorYellow + line + colorReset
	}
	return line
}

func entity(ref logging.EntityRef) string {
	switch {
	case ref.ID == "" && ref.Kind == "":
		return "-"
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
