package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schoolgle/schoolgle/internal/action"
	"github.com/schoolgle/schoolgle/internal/apikey"
	apikeydomain "github.com/schoolgle/schoolgle/internal/apikey/domain"
	"github.com/schoolgle/schoolgle/internal/audit"
	auditdomain "github.com/schoolgle/schoolgle/internal/audit/domain"
	"github.com/schoolgle/schoolgle/internal/authorization"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/internal/health"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	"github.com/schoolgle/schoolgle/internal/invoice"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	"github.com/schoolgle/schoolgle/internal/observability"
	obsmiddleware "github.com/schoolgle/schoolgle/internal/observability/logger"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	obstracing "github.com/schoolgle/schoolgle/internal/observability/tracing"
	"github.com/schoolgle/schoolgle/internal/organization"
	"github.com/schoolgle/schoolgle/internal/providers"
	"github.com/schoolgle/schoolgle/internal/ratelimit"
	"github.com/schoolgle/schoolgle/internal/subscription"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"github.com/schoolgle/schoolgle/internal/usage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Services is every domain module the admin API depends on. The scheduler
// binary reuses it without the HTTP layer.
var Services = fx.Options(
	authorization.Module,
	audit.Module,
	apikey.Module,
	organization.Module,
	usage.Module,
	action.Module,
	ratelimit.Module,
	providers.Module,
	invoice.Module,
	health.Module,
	subscription.Module,
)

var Module = fx.Module("http.server",
	Services,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	apiKeySvc       apikeydomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	healthSvc       healthdomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	triggerLimiter  *ratelimit.TriggerLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	APIKeySvc       apikeydomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	HealthSvc       healthdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	TriggerLimiter  *ratelimit.TriggerLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		apiKeySvc:       p.APIKeySvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		healthSvc:       p.HealthSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		triggerLimiter:  p.TriggerLimiter,
	}

	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.APIKeyRequired())

	// -------- Customer Health --------
	admin.GET("/health", s.authorizeAction(authorization.ObjectHealth, authorization.ActionHealthView), s.ListCustomerHealth)
	admin.POST("/health", s.authorizeAction(authorization.ObjectHealth, authorization.ActionHealthCompute), s.TriggerRateLimit(), s.SweepCustomerHealth)
	admin.GET("/health/:organizationId", s.authorizeAction(authorization.ObjectHealth, authorization.ActionHealthView), s.GetCustomerHealth)
	admin.POST("/health/:organizationId", s.authorizeAction(authorization.ObjectHealth, authorization.ActionHealthCompute), s.TriggerRateLimit(), s.ComputeCustomerHealth)

	// -------- Subscriptions --------
	admin.GET("/subscriptions", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.ListSubscriptions)
	admin.POST("/subscriptions", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionCreate), s.CreateSubscription)
	admin.PATCH("/subscriptions", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionUpdate), s.UpdateSubscription)
	admin.GET("/subscriptions/:id", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.GetSubscriptionByID)
	admin.GET("/subscriptions/:id/history", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.ListSubscriptionHistory)
	admin.GET("/subscriptions/:id/invoices", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListSubscriptionInvoices)

	// -------- Invoices --------
	admin.GET("/invoices/:id", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	admin.GET("/invoices/:id/pdf", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.RenderInvoicePDF)

	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	admin.GET("/api-keys", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.ListAPIKeys)
	admin.POST("/api-keys", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	admin.POST("/api-keys/:key_id/revoke", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)
}
