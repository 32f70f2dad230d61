package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/schoolgle/schoolgle/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware instruments inbound HTTP requests.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("schoolgle/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))

		requestID := obscontext.RequestIDFromContext(ctx)
		if requestID != "" {
			member, err := baggage.NewMember("request_id", requestID)
			if err == nil {
				bag, bagErr := baggage.New(member)
				if bagErr == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		span.SetAttributes(SafeAttributes(append(attrs, adminAttributes(c, route)...)...)...)

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

const adminRoutePrefix = "/api/admin/"

// adminAttributes tags admin API spans with the calling key and the record
// the route addresses. The actor is read after c.Next so the auth middleware
// has already attached it.
func adminAttributes(c *gin.Context, route string) []attribute.KeyValue {
	if !strings.HasPrefix(route, adminRoutePrefix) {
		return nil
	}

	var attrs []attribute.KeyValue
	resource, _, _ := strings.Cut(strings.TrimPrefix(route, adminRoutePrefix), "/")
	attrs = append(attrs, attribute.String("schoolgle.resource", resource))

	ctx := c.Request.Context()
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		attrs = append(attrs,
			attribute.String("schoolgle.actor_type", actorType),
			attribute.String("schoolgle.actor_id", actorID),
		)
	}

	orgID := c.Param("organizationId")
	if orgID == "" {
		orgID = obscontext.OrgIDFromContext(ctx)
	}
	if orgID != "" {
		attrs = append(attrs, attribute.String("schoolgle.organization_id", orgID))
	}

	if id := c.Param("id"); id != "" {
		switch resource {
		case "subscriptions":
			attrs = append(attrs, attribute.String("schoolgle.subscription_id", id))
		case "invoices":
			attrs = append(attrs, attribute.String("schoolgle.invoice_id", id))
		}
	}
	return attrs
}
