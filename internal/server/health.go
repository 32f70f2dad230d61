package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	"github.com/schoolgle/schoolgle/internal/observability/logger"
	"go.uber.org/zap"
)

// SweepCustomerHealth recomputes every organization with an active
// subscription. Failures render as a bare {error} body.
func (s *Server) SweepCustomerHealth(c *gin.Context) {
	result, err := s.healthSvc.Sweep(c.Request.Context())
	if err != nil {
		if errors.Is(err, healthdomain.ErrSweepInProgress) {
			AbortWithError(c, err)
			return
		}
		logger.FromContext(c.Request.Context()).Error("health sweep failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   result.Success,
		"processed": result.Processed,
		"failed":    result.Failed,
		"results":   result.Results,
	})
}

func (s *Server) ListCustomerHealth(c *gin.Context) {
	records, err := s.healthSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) GetCustomerHealth(c *gin.Context) {
	orgID, err := parseOrganizationID(c.Param("organizationId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.healthSvc.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) ComputeCustomerHealth(c *gin.Context) {
	orgID, err := parseOrganizationID(c.Param("organizationId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.healthSvc.ComputeOrganization(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := orgID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), &orgID, "", nil, "health.compute", "organization", &targetID, map[string]any{
			"health_score":  record.HealthScore,
			"health_status": string(record.HealthStatus),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func parseOrganizationID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, healthdomain.ErrInvalidOrganization
	}
	return id, nil
}
