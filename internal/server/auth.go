package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/schoolgle/schoolgle/internal/audit/domain"
	"github.com/schoolgle/schoolgle/internal/auditcontext"
	obscontext "github.com/schoolgle/schoolgle/internal/observability/context"
)

const (
	contextAPIKeyIDKey   = "api_key_id"
	contextAPIKeyRoleKey = "api_key_role"
)

// APIKeyRequired authenticates admin requests with a bearer API key and
// records the key as the actor for audit and history rows.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.apiKeySvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		actorType := string(auditdomain.ActorTypeAPIKey)
		ctx := c.Request.Context()
		ctx = auditcontext.WithActor(ctx, actorType, key.KeyID)
		ctx = auditcontext.WithRequestID(ctx, obscontext.RequestIDFromContext(ctx))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		ctx = obscontext.WithActor(ctx, actorType, key.KeyID)

		c.Set(contextAPIKeyIDKey, key.KeyID)
		c.Set(contextAPIKeyRoleKey, key.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyID := c.GetString(contextAPIKeyIDKey)
		role := c.GetString(contextAPIKeyRoleKey)
		if keyID == "" || role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := string(auditdomain.ActorTypeAPIKey) + ":" + keyID
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
