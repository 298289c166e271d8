package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestWithHTTPRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", WithHTTPRoute(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "server")
	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil).WithContext(ctx)
	mux.ServeHTTP(httptest.NewRecorder(), req)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), semconv.HTTPRoute("GET /orders/{id}"))
}

func TestSpanName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	assert.Equal(t, "POST /orders", SpanName("", req))

	req.Pattern = "POST /orders"
	assert.Equal(t, "POST /orders", SpanName("", req))
}
