package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"go.uber.org/zap"
)

type paymentConfirmedRequest struct {
	CommissionID string `json:"commission_id" binding:"required"`
	OrderID      string `json:"order_id"`
}

// HandlePaymentConfirmed is the at-least-once entry point. Whatever the payout
// outcome, the event is acknowledged with 200 so the sender stops redelivering;
// the structured result body carries the real outcome.
func (s *Server) HandlePaymentConfirmed(c *gin.Context) {
	var req paymentConfirmedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	commissionID, err := snowflake.ParseString(strings.TrimSpace(req.CommissionID))
	if err != nil || commissionID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_commission_id"})
		return
	}

	var orderID snowflake.ID
	if trimmed := strings.TrimSpace(req.OrderID); trimmed != "" {
		orderID, err = snowflake.ParseString(trimmed)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
			return
		}
	}

	result, err := s.payoutSvc.Payout(c.Request.Context(), commissionID, orderID)
	if err != nil {
		// Infrastructure failure: let the sender redeliver, the pipeline is
		// safe to re-enter.
		s.log.Error("payout infrastructure failure",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("commission_id", commissionID.String()),
			zap.Error(err),
		)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleRetryPayout lets operators and the external retry scheduler re-drive a
// commission without a payment event. The pipeline is idempotent, so re-driving
// an already-paid commission is a cheap no-op.
func (s *Server) HandleRetryPayout(c *gin.Context) {
	commissionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || commissionID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_commission_id"})
		return
	}

	result, err := s.payoutSvc.Payout(c.Request.Context(), commissionID, 0)
	if err != nil {
		s.log.Error("payout infrastructure failure",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("commission_id", commissionID.String()),
			zap.Error(err),
		)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) HandleValidateCommission(c *gin.Context) {
	commissionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || commissionID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_commission_id"})
		return
	}

	result, err := s.integritySvc.Validate(c.Request.Context(), commissionID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) HandleGetCommission(c *gin.Context) {
	commission, err := s.commissionSvc.GetByID(c.Request.Context(), commissiondomain.GetCommissionRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, commission)
}

func (s *Server) HandleListCommissions(c *gin.Context) {
	var page struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size,default=50"`
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	resp, err := s.commissionSvc.List(c.Request.Context(), commissiondomain.ListCommissionRequest{
		AffiliateID: c.Param("id"),
		Status:      c.Query("status"),
		PageToken:   page.PageToken,
		PageSize:    page.PageSize,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
