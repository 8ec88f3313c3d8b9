package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pg-hostel/services"
)

// CreateTenantForm multipart fields of the tenant registration form. The ID
// proof arrives as file "idProof" and the optional photo as "profilePhoto".
type CreateTenantForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Phone    string `form:"phone" binding:"required"`
	RoomNo   string `form:"room_no" binding:"required"`
	Deposit  string `form:"deposit"`
	IDType   string `form:"id_type" binding:"required"`
	IDNumber string `form:"id_number" binding:"required"`
}

// CheckoutRequest optional reason for leaving.
type CheckoutRequest struct {
	Reason string `json:"reason"`
}

// CreateTenant registers a tenant and assigns their room (admin).
func (h *Handler) CreateTenant(c *gin.Context) {
	var form CreateTenantForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}

	deposit := decimal.Zero
	if form.Deposit != "" {
		d, err := decimal.NewFromString(form.Deposit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deposit: not a number", "field": "deposit"})
			return
		}
		deposit = d
	}

	idProof, err := h.saveUpload(c, "idProof")
	if errors.Is(err, errNoUpload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID proof file is required", "field": "idProof"})
		return
	}
	if err != nil {
		badRequest(c, err)
		return
	}
	photo, err := h.saveUpload(c, "profilePhoto")
	if err != nil && !errors.Is(err, errNoUpload) {
		badRequest(c, err)
		return
	}

	tenant, err := h.Tenants.Create(c.Request.Context(), services.NewTenant{
		Name:         form.Name,
		Email:        form.Email,
		Phone:        form.Phone,
		RoomNo:       form.RoomNo,
		Deposit:      deposit,
		IDType:       form.IDType,
		IDNumber:     form.IDNumber,
		IDProof:      idProof,
		ProfilePhoto: photo,
	})
	if err != nil {
		h.discardUploads(c, idProof, photo)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "tenant created",
		"tenant":  tenant,
	})
}

func (h *Handler) discardUploads(c *gin.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := h.Documents.Delete(c.Request.Context(), u); err != nil {
			h.Logger.Warn("failed to remove upload", zap.String("url", u), zap.Error(err))
		}
	}
}

// ListTenants returns every active tenant (admin).
func (h *Handler) ListTenants(c *gin.Context) {
	tenants, err := h.Tenants.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// GetTenant returns one tenant (admin).
func (h *Handler) GetTenant(c *gin.Context) {
	tenant, err := h.Tenants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}

// CheckoutTenant archives a tenant and frees their bed (admin).
func (h *Handler) CheckoutTenant(c *gin.Context) {
	var req CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	past, err := h.Archive.Checkout(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "tenant checked out",
		"history": past,
	})
}

// GetHistory lists past tenants, latest departure first (admin).
func (h *Handler) GetHistory(c *gin.Context) {
	past, err := h.Archive.History(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": past})
}
