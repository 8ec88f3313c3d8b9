// Package handlers exposes the hostel services over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pg-hostel/middleware"
	"pg-hostel/services"
	"pg-hostel/store"
)

// Handler holds the services used by the HTTP routes.
type Handler struct {
	Tenants    *services.TenantService
	Occupancy  *services.OccupancyService
	Billing    *services.BillingService
	Reports    *services.ReportService
	Proofs     *services.RentProofService
	Archive    *services.ArchiveService
	Payments   *services.PaymentService
	Complaints *services.ComplaintService
	Notices    *services.NoticeHub
	Scheduler  *services.BillScheduler
	Documents  store.DocumentStore
	Logger     *zap.Logger

	// MaxUploadBytes caps each uploaded document.
	MaxUploadBytes int64

	// Now is the billing clock, in the billing time zone. nil uses time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// respondError translates service errors into HTTP responses. Unexpected
// errors are logged and hidden from the caller.
func (h *Handler) respondError(c *gin.Context, err error) {
	var fieldErr *services.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fieldErr.Error(),
			"field": fieldErr.Field,
		})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "room is already fully occupied"})
	case errors.Is(err, services.ErrTargetFull):
		c.JSON(http.StatusConflict, gin.H{"error": "target room is already full"})
	case errors.Is(err, services.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSignatureMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification failed"})
	case errors.Is(err, services.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, services.ErrAlreadyPaid):
		c.JSON(http.StatusOK, gin.H{"message": "bill is already paid"})
	default:
		h.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

// currentUserID returns the authenticated user or tenant id.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}
