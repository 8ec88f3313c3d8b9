package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pg-hostel/services"
)

// ElectricityRequest splits an electricity charge across tenants.
type ElectricityRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	TenantIDs []string        `json:"tenant_ids" binding:"required,min=1"`
	Month     string          `json:"month"`
	Year      int             `json:"year"`
}

// GetMyBills lists the signed-in tenant's bills.
func (h *Handler) GetMyBills(c *gin.Context) {
	bills, err := h.Billing.ListTenantBills(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// ListBills lists bills, optionally for one period (admin).
func (h *Handler) ListBills(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	bills, err := h.Billing.ListBills(c.Request.Context(), c.Query("month"), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// GenerateBills runs monthly rent generation for the current month in the
// billing time zone (admin).
func (h *Handler) GenerateBills(c *gin.Context) {
	var (
		result *services.GenerationResult
		err    error
	)
	asOf := h.now()
	if h.Scheduler != nil {
		result, err = h.Scheduler.RunNow(c.Request.Context(), asOf)
	} else {
		result, err = h.Billing.GenerateMonthlyRent(c.Request.Context(), asOf)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "rent bills generated",
		"month":   result.Month,
		"year":    result.Year,
		"created": len(result.Created),
		"skipped": result.Skipped,
		"bills":   result.Created,
	})
}

// CreateElectricityBills splits an electricity charge (admin).
func (h *Handler) CreateElectricityBills(c *gin.Context) {
	var req ElectricityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bills, err := h.Billing.CreateElectricitySplit(c.Request.Context(), services.ElectricitySplit{
		Amount:    req.Amount,
		TenantIDs: req.TenantIDs,
		Month:     req.Month,
		Year:      req.Year,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "electricity bills created",
		"count":   len(bills),
		"bills":   bills,
	})
}
