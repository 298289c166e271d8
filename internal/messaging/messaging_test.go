package messaging

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{}
	carrier := NewMessageCarrier(&msg)

	carrier.Set("traceparent", "a")
	carrier.Set("baggage", "b")
	carrier.Set("traceparent", "c")

	assert.Equal(t, "c", carrier.Get("traceparent"))
	assert.Equal(t, "b", carrier.Get("baggage"))
	assert.Empty(t, carrier.Get("missing"))
	assert.Equal(t, []string{"traceparent", "baggage"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestMessageCarrier_RoundTripsTraceContext(t *testing.T) {
	prop := propagation.TraceContext{}
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	msg := kafka.Message{}
	prop.Inject(trace.ContextWithSpanContext(context.Background(), sc), NewMessageCarrier(&msg))

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), NewMessageCarrier(&msg)))
	assert.Equal(t, traceID, got.TraceID())
	assert.Equal(t, spanID, got.SpanID())
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad payload")

	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(errors.Wrap(Permanent(base), "handle")))
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}
