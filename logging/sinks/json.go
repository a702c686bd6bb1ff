package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"gridtactics/server/logging"
)

// JSON writes newline-delimited event records. Records are flushed every
// MaxBatch events, on the flush interval, and on Close. With no interval
// and no batch size every record is flushed immediately.
type JSON struct {
	mu       sync.Mutex
	buf      *bufio.Writer
	enc      *json.Encoder
	maxBatch int
	pending  int
	done     chan struct{}
	once     sync.Once
}

type jsonRecord struct {
	Type     logging.EventType   `json:"type"`
	BattleID string              `json:"battleId,omitempty"`
	Turn     int                 `json:"turn"`
	Time     string              `json:"time"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
}

func NewJSON(w io.Writer, cfg logging.JSONConfig) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	s := &JSON{
		buf:      buf,
		enc:      json.NewEncoder(buf),
		maxBatch: cfg.MaxBatch,
		done:     make(chan struct{}),
	}
	if cfg.FlushInterval <= 0 && s.maxBatch <= 0 {
		s.maxBatch = 1
	}
	if cfg.FlushInterval > 0 {
		go s.flushEvery(cfg.FlushInterval)
	}
	return s
}

func (s *JSON) Write(event logging.Event) error {
	record := jsonRecord{
		Type:     event.Type,
		BattleID: event.BattleID,
		Turn:     event.Turn,
		Time:     event.Time.UTC().Format(time.RFC3339Nano),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(record); err != nil {
		return err
	}
	s.pending++
	if s.maxBatch > 0 && s.pending >= s.maxBatch {
		return s.flushLocked()
	}
	return nil
}

func (s *JSON) Close(context.Context) error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *JSON) flushLocked() error {
	s.pending = 0
	return s.buf.Flush()
}

func (s *JSON) flushEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.pending > 0 {
				s.flushLocked()
			}
			s.mu.Unlock()
		}
	}
}
