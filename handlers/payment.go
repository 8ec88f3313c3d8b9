package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pg-hostel/services"
)

// CreateOrderRequest bill to pay online.
type CreateOrderRequest struct {
	BillID string `json:"bill_id" binding:"required"`
}

// VerifyPaymentRequest gateway callback fields forwarded by the client.
type VerifyPaymentRequest struct {
	BillID    string `json:"bill_id" binding:"required"`
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// CreatePaymentOrder opens a gateway order for one of the tenant's bills.
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.ownsBill(c, req.BillID) {
		return
	}

	order, err := h.Payments.CreateOrder(c.Request.Context(), req.BillID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyPaid) {
			c.JSON(http.StatusConflict, gin.H{"error": "bill is already paid"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// VerifyPayment checks the gateway signature and marks the bill paid.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.ownsBill(c, req.BillID) {
		return
	}

	bill, err := h.Payments.Verify(c.Request.Context(), services.VerifyRequest{
		BillID:    req.BillID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if errors.Is(err, services.ErrDuplicate) {
		c.JSON(http.StatusOK, gin.H{"message": "payment already processed"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "payment verified",
		"bill":    bill,
	})
}

// ownsBill rejects requests for bills that belong to another tenant.
func (h *Handler) ownsBill(c *gin.Context, billID string) bool {
	bill, err := h.Billing.GetBill(c.Request.Context(), billID)
	if err != nil {
		h.respondError(c, err)
		return false
	}
	if bill.TenantID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "bill belongs to another tenant"})
		return false
	}
	return true
}
