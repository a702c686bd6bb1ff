package combat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gridtactics/server/internal/telemetry"
)

const tracerName = "gridtactics/server/internal/combat"

var (
	ErrChannelClosed = errors.New("combat: damage channel closed")
	ErrChannelFailed = errors.New("combat: damage channel failed")
)

// ResolveFunc computes a result for one request. A returned error or a panic
// fails the channel.
type ResolveFunc func(DamageRequest) (DamageResult, error)

// Reply pairs a request with its outcome. Err wraps ErrChannelFailed when
// the worker could not produce a result.
type Reply struct {
	Request DamageRequest
	Result  DamageResult
	Err     error
}

// ChannelConfig tunes the damage channel.
type ChannelConfig struct {
	Buffer  int
	Resolve ResolveFunc
	Tracer  trace.Tracer
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

type envelope struct {
	req    DamageRequest
	parent trace.SpanContext
}

// Channel resolves damage requests on a dedicated worker goroutine. The
// worker handles requests one at a time in submission order.
type Channel struct {
	requests chan envelope
	replies  chan Reply
	done     chan struct{}

	resolve ResolveFunc
	tracer  trace.Tracer
	logger  telemetry.Logger
	metrics telemetry.Metrics

	seq       atomic.Uint64
	failed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewChannel starts the worker. Close must be called to release it.
func NewChannel(cfg ChannelConfig) *Channel {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 8
	}
	resolve := cfg.Resolve
	if resolve == nil {
		resolve = func(req DamageRequest) (DamageResult, error) { return Compute(req), nil }
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	c := &Channel{
		requests: make(chan envelope, buffer),
		replies:  make(chan Reply, buffer),
		done:     make(chan struct{}),
		resolve:  resolve,
		tracer:   tracer,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Submit queues req and returns its sequence number. It never waits for the
// result; replies arrive on Replies in submission order.
func (c *Channel) Submit(ctx context.Context, req DamageRequest) (uint64, error) {
	if c.failed.Load() {
		return 0, ErrChannelFailed
	}
	req.Seq = c.seq.Add(1)
	env := envelope{req: req, parent: trace.SpanContextFromContext(ctx)}
	select {
	case <-c.done:
		return 0, ErrChannelClosed
	default:
	}
	select {
	case c.requests <- env:
		c.add("damage_requests_total", 1)
		return req.Seq, nil
	case <-c.done:
		return 0, ErrChannelClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Replies delivers worker results.
func (c *Channel) Replies() <-chan Reply {
	return c.replies
}

// Failed reports whether the worker has stopped after a failure.
func (c *Channel) Failed() bool {
	return c.failed.Load()
}

// Close stops the worker and waits for it to exit. Requests still queued are
// dropped.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

func (c *Channel) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case env := <-c.requests:
			reply := c.handle(env)
			select {
			case c.replies <- reply:
			case <-c.done:
				return
			}
			if reply.Err != nil {
				c.failed.Store(true)
				c.logger.Printf("[combat] damage worker stopped: %v", reply.Err)
				return
			}
		}
	}
}

func (c *Channel) handle(env envelope) (reply Reply) {
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), env.parent)
	_, span := c.tracer.Start(ctx, "combat.resolve_damage", trace.WithAttributes(
		attribute.String("attacker.id", env.req.AttackerID),
		attribute.String("target.id", env.req.TargetID),
		attribute.Int("damage.raw", env.req.RawDamage),
		attribute.String("damage.type", string(env.req.Type)),
	))
	defer span.End()

	reply.Request = env.req
	defer func() {
		if r := recover(); r != nil {
			reply.Err = fmt.Errorf("%w: panic: %v", ErrChannelFailed, r)
		}
		if reply.Err != nil {
			span.RecordError(reply.Err)
			span.SetStatus(codes.Error, reply.Err.Error())
			c.add("damage_failures_total", 1)
		}
	}()

	result, err := c.resolve(env.req)
	if err != nil {
		reply.Err = fmt.Errorf("%w: %v", ErrChannelFailed, err)
		return reply
	}
	reply.Result = result
	span.SetAttributes(
		attribute.Int("damage.hp", result.HPDamageDealt),
		attribute.Int("damage.barrier", result.BarrierDamageDealt),
	)
	return reply
}

func (c *Channel) add(key string, delta uint64) {
	if c.metrics != nil {
		c.metrics.Add(key, delta)
	}
}
