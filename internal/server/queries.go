package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
	subscriptiondomain "github.com/garethtyler2/monthlyclub-sub003/internal/subscription/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q *pageQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// @Summary      List Billing Logs
// @Description  List daily billing run records, newest first
// @Tags         billing
// @Produce      json
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  []billingdomain.DailyBillingLog
// @Router       /billing/logs [get]
func (s *Server) ListBillingLogs(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.normalize()

	var logs []billingdomain.DailyBillingLog
	err := s.db.WithContext(c.Request.Context()).
		Order("run_date DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&logs).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// @Summary      List Payments
// @Description  List payment ledger rows, optionally filtered by user or business
// @Tags         billing
// @Produce      json
// @Param        user_id      query  string  false  "User ID"
// @Param        business_id  query  string  false  "Business ID"
// @Param        status       query  string  false  "Status"
// @Success      200  {object}  []paymentdomain.Payment
// @Router       /payments [get]
func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pageQuery
		UserID     string `form:"user_id"`
		BusinessID string `form:"business_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.normalize()

	tx := s.db.WithContext(c.Request.Context()).Model(&paymentdomain.Payment{})
	if userID := strings.TrimSpace(query.UserID); userID != "" {
		tx = tx.Where("user_id = ?", userID)
	}
	if businessID := strings.TrimSpace(query.BusinessID); businessID != "" {
		tx = tx.Where("business_id = ?", businessID)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		tx = tx.Where("status = ?", status)
	}

	var payments []paymentdomain.Payment
	err := tx.Order("created_at DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&payments).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

// @Summary      List Scheduled Payments
// @Description  List recurring charge schedules for a business
// @Tags         billing
// @Produce      json
// @Param        business_id  query  string  true   "Business ID"
// @Param        status       query  string  false  "Status"
// @Success      200  {object}  []subscriptiondomain.ScheduledPayment
// @Router       /scheduled-payments [get]
func (s *Server) ListScheduledPayments(c *gin.Context) {
	var query struct {
		pageQuery
		BusinessID string `form:"business_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.normalize()

	businessID := strings.TrimSpace(query.BusinessID)
	if businessID == "" {
		AbortWithError(c, newValidationError("business_id", "required", "business_id is required"))
		return
	}

	tx := s.db.WithContext(c.Request.Context()).
		Table("scheduled_payments sp").
		Select("sp.*").
		Joins("JOIN products p ON p.id = sp.product_id").
		Where("p.business_id = ?", businessID)
	if status := strings.TrimSpace(query.Status); status != "" {
		tx = tx.Where("sp.status = ?", status)
	}

	var schedules []subscriptiondomain.ScheduledPayment
	err := tx.Order("sp.id").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&schedules).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": schedules})
}
