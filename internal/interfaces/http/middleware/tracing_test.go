package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T, status int) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	actor := shared.NewActor(uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000001"), shared.RoleFulfiller)
	router := gin.New()
	router.Use(
		RequestID(),
		func(c *gin.Context) {
			ctx, span := tp.Tracer("test").Start(c.Request.Context(), c.Request.URL.Path)
			defer span.End()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		},
		func(c *gin.Context) { c.Set(ActorKey, actor); c.Next() },
		TracingAttributeInjector(),
		SpanErrorMarker(),
	)
	router.GET("/test", func(c *gin.Context) { c.Status(status) })
	return router, recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingAttributeInjector(t *testing.T) {
	router, recorder := tracedRouter(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	a := attrs(spans[0])
	assert.Equal(t, "req-7", a["request_id"].AsString())
	assert.Equal(t, "fulfiller", a["actor.role"].AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status int
		code   codes.Code
	}{
		{http.StatusUnprocessableEntity, codes.Unset},
		{http.StatusBadGateway, codes.Error},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			router, recorder := tracedRouter(t, tt.status)
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.code, spans[0].Status().Code)
			assert.Equal(t, int64(tt.status), attrs(spans[0])["http.status_code"].AsInt64())
		})
	}
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
