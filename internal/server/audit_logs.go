package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/schoolgle/schoolgle/internal/audit/domain"
	"github.com/schoolgle/schoolgle/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken      string `form:"page_token"`
	PageSize       int    `form:"page_size"`
	OrganizationID string `form:"organization_id"`
	Action         string `form:"action"`
	TargetType     string `form:"target_type"`
	TargetID       string `form:"target_id"`
	ActorType      string `form:"actor_type"`
	StartAt        string `form:"start_at"`
	EndAt          string `form:"end_at"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalRFC3339(query.StartAt)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalRFC3339(query.EndAt)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorType:  strings.TrimSpace(query.ActorType),
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if value := strings.TrimSpace(query.OrganizationID); value != "" {
		orgID, err := parseOrganizationID(value)
		if err != nil {
			AbortWithError(c, newValidationError("organization_id", "invalid_organization_id", "invalid organization_id"))
			return
		}
		req.OrgID = &orgID
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}

func parseOptionalRFC3339(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
