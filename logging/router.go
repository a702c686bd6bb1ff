package logging

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Filter is implemented by sinks that only want a subset of events, such
// as the websocket broadcaster skipping battles nobody watches.
type Filter interface {
	Accepts(Event) bool
}

// Router fans battle events out to named sinks. Each sink has its own
// worker and severity floor. Lifecycle and critical events wait for queue
// space instead of being dropped so watchers always see a battle end.
type Router struct {
	cfg      Config
	queue    chan Event
	workers  []*sinkWorker
	clock    Clock
	fallback *log.Logger
	floor    Severity
	fields   map[string]any

	stopping chan struct{}
	closed   atomic.Bool
	wg       sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

// SinkStats reports one sink's delivery counters.
type SinkStats struct {
	Written  uint64
	Dropped  uint64
	Failures uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	Sinks        map[string]SinkStats
}

// NewRouter starts a router over the named sinks.
func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(io.Discard, "", 0)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	r := &Router{
		cfg:      cfg,
		queue:    make(chan Event, bufferSize),
		clock:    clock,
		fallback: fallback,
		floor:    cfg.MinimumSeverity,
		fields:   cfg.CloneFields(),
		stopping: make(chan struct{}),
	}

	names := make([]string, 0, len(sinks))
	for name, sink := range sinks {
		if sink != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	workerBuffer := min(max(bufferSize, 32), 1024)
	for _, name := range names {
		severity := cfg.SeverityFor(name)
		if severity < r.floor {
			r.floor = severity
		}
		r.workers = append(r.workers, &sinkWorker{
			name:     name,
			sink:     sinks[name],
			severity: severity,
			events:   make(chan Event, workerBuffer),
			fallback: fallback,
		})
	}

	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.stopping:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = withDefaults(event, r.fields)
	r.eventsTotal.Add(1)
	for _, w := range r.workers {
		w.offer(event)
	}
}

// Publish queues an event. Events below every sink's floor are discarded
// up front.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || event.Severity < r.floor || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
		return
	default:
	}
	if !mustDeliver(event) {
		r.handleDrop(event)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case r.queue <- event:
	case <-ctx.Done():
		r.handleDrop(event)
	case <-r.stopping:
		r.handleDrop(event)
	}
}

func mustDeliver(event Event) bool {
	return event.Severity >= SeverityCritical || event.Category == CategoryLifecycle
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if next == 0 || now >= next {
		if r.lastDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
			r.fallback.Printf("dropping event type=%s battle=%s turn=%d", event.Type, event.BattleID, event.Turn)
		}
	}
}

// Close stops accepting events, flushes what is queued into the sinks and
// closes them. Later calls return nil.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stopping)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
		Sinks:        make(map[string]SinkStats, len(r.workers)),
	}
	for _, w := range r.workers {
		stats.Sinks[w.name] = SinkStats{
			Written:  w.written.Load(),
			Dropped:  w.dropped.Load(),
			Failures: w.failures.Load(),
		}
	}
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name     string
	sink     Sink
	severity Severity
	events   chan Event
	fallback *log.Logger

	written  atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64

	// owned by run
	streak    int
	holdUntil time.Time
}

func (w *sinkWorker) offer(event Event) {
	if event.Severity < w.severity {
		return
	}
	if filter, ok := w.sink.(Filter); ok && !filter.Accepts(event) {
		return
	}
	select {
	case w.events <- event.Clone():
	default:
		w.dropped.Add(1)
		w.fallback.Printf("sink %s backlog full, dropping %s", w.name, event.Type)
	}
}

// run writes events until the channel closes. While a failing sink backs
// off, non-critical events are skipped rather than queued behind it.
func (w *sinkWorker) run() {
	for event := range w.events {
		if !w.holdUntil.IsZero() && time.Now().Before(w.holdUntil) && !mustDeliver(event) {
			w.dropped.Add(1)
			continue
		}
		if err := w.sink.Write(event); err != nil {
			w.failures.Add(1)
			w.streak++
			backoff := time.Duration(1<<min(w.streak, 5)) * time.Second
			w.holdUntil = time.Now().Add(backoff)
			w.fallback.Printf("sink %s failed: %v (holding for %s)", w.name, err, backoff)
			continue
		}
		w.written.Add(1)
		w.streak = 0
		w.holdUntil = time.Time{}
	}
}
