package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/schoolgle/schoolgle/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})

	r := gin.New()
	r.Use(GinMiddleware())
	authenticated := func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), "api_key", "key_7")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
	r.POST("/api/admin/health/:organizationId", authenticated, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/api/admin/invoices/:id/pdf", authenticated, func(c *gin.Context) {
		_ = c.Error(errors.New("render failed"))
		c.Status(http.StatusInternalServerError)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := map[attribute.Key]string{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestGinMiddlewareTagsAdminSpans(t *testing.T) {
	r, recorder := newTracedEngine(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/health/1234", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/admin/health/:organizationId", spans[0].Name())

	attrs := spanAttributes(spans[0])
	assert.Equal(t, "health", attrs["schoolgle.resource"])
	assert.Equal(t, "api_key", attrs["schoolgle.actor_type"])
	assert.Equal(t, "key_7", attrs["schoolgle.actor_id"])
	assert.Equal(t, "1234", attrs["schoolgle.organization_id"])
	assert.Equal(t, "200", attrs["http.status_code"])
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	r, recorder := newTracedEngine(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/invoices/99/pdf", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := spanAttributes(spans[0])
	assert.Equal(t, "invoices", attrs["schoolgle.resource"])
	assert.Equal(t, "99", attrs["schoolgle.invoice_id"])
	assert.NotContains(t, attrs, attribute.Key("schoolgle.organization_id"))
}

func TestGinMiddlewareSkipsAdminAttributesOutsideAdminAPI(t *testing.T) {
	r, recorder := newTracedEngine(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttributes(spans[0])
	assert.Equal(t, "/health", attrs["http.route"])
	assert.NotContains(t, attrs, attribute.Key("schoolgle.resource"))
}
