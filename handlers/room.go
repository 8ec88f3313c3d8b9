package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UpdatePriceRequest new monthly rent for a room.
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// TransferRequest moves a tenant to another room.
type TransferRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	ToRoom   string `json:"to_room" binding:"required"`
}

// GetAvailableRooms lists rooms with a free bed.
func (h *Handler) GetAvailableRooms(c *gin.Context) {
	rooms, err := h.Occupancy.AvailableRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "available rooms",
		"rooms":   rooms,
	})
}

// GetAllRooms lists every room with its occupants (admin).
func (h *Handler) GetAllRooms(c *gin.Context) {
	rooms, err := h.Occupancy.ListRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "all rooms",
		"rooms":   rooms,
	})
}

// UpdateRoomPrice sets a room's monthly rent (admin).
func (h *Handler) UpdateRoomPrice(c *gin.Context) {
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.Occupancy.UpdatePrice(c.Request.Context(), c.Param("room_no"), req.Price)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "room price updated",
		"room":    room,
	})
}

// SeedRooms creates the default room layout (admin).
func (h *Handler) SeedRooms(c *gin.Context) {
	created, err := h.Occupancy.SeedRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "rooms seeded",
		"created": created,
	})
}

// ReconcileRooms repairs occupant lists, counts and statuses (admin).
func (h *Handler) ReconcileRooms(c *gin.Context) {
	corrected, err := h.Occupancy.Reconcile(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "reconcile complete",
		"corrected": corrected,
	})
}

// TransferTenant moves a tenant to another room (admin).
func (h *Handler) TransferTenant(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tenant, err := h.Occupancy.Transfer(c.Request.Context(), req.TenantID, req.ToRoom)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "tenant transferred",
		"tenant":  tenant,
	})
}

// GetRoomOperations returns the occupancy log of a room (admin).
func (h *Handler) GetRoomOperations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ops, err := h.Occupancy.Operations(c.Request.Context(), c.Param("room_no"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_no":    c.Param("room_no"),
		"operations": ops,
	})
}
