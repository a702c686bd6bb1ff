package combat

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestChannelSpanContinuesSubmitterTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())
	tracer := provider.Tracer("test")

	c := NewChannel(ChannelConfig{Tracer: tracer})
	defer c.Close()

	ctx, parent := tracer.Start(context.Background(), "turn")
	if _, err := c.Submit(ctx, DamageRequest{AttackerID: "a", TargetID: "t", RawDamage: 12, TargetHP: 50}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitReply(t, c)
	parent.End()

	var resolved sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "combat.resolve_damage" {
			resolved = span
		}
	}
	if resolved == nil {
		t.Fatalf("expected a resolve span, got %d spans", len(recorder.Ended()))
	}
	if resolved.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Fatalf("resolve span is not a child of the submitting span")
	}
	if resolved.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Fatalf("resolve span left the submitter's trace")
	}
}
