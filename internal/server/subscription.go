package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
)

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Plan   string `form:"plan"`
		Health string `form:"health"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListSubscriptionRequest{
		Status: strings.TrimSpace(query.Status),
		Plan:   strings.TrimSpace(query.Plan),
		Health: strings.TrimSpace(query.Health),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Data, "summary": resp.Summary})
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req subscriptiondomain.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		orgID := resp.OrgID
		targetID := resp.ID.String()
		metadata := map[string]any{
			"plan":               string(resp.Plan),
			"payment_method":     string(resp.PaymentMethod),
			"school_count":       resp.SchoolCount,
			"final_price_annual": resp.FinalPriceAnnual,
		}
		if resp.Invoice != nil {
			metadata["invoice_number"] = resp.Invoice.InvoiceNumber
		}
		_ = s.auditSvc.AuditLog(c.Request.Context(), &orgID, "", nil, "subscription.create", "subscription", &targetID, metadata)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	var req subscriptiondomain.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		orgID := resp.OrgID
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), &orgID, "", nil, "subscription."+strings.ToLower(strings.TrimSpace(string(req.Action))), "subscription", &targetID, map[string]any{
			"status":             string(resp.Status),
			"plan":               string(resp.Plan),
			"final_price_annual": resp.FinalPriceAnnual,
			"reason":             strings.TrimSpace(req.Reason),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptionHistory(c *gin.Context) {
	history, err := s.subscriptionSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}
