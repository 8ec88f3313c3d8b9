package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pg-hostel/middleware"
	"pg-hostel/models"
)

// ComplaintStatusRequest new status for a complaint.
type ComplaintStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// NoticeRequest a notice to post.
type NoticeRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// LodgeComplaint records a complaint for the signed-in tenant. Multipart
// fields: description and optional file "image".
func (h *Handler) LodgeComplaint(c *gin.Context) {
	image, err := h.saveUpload(c, "image")
	if err != nil && !errors.Is(err, errNoUpload) {
		badRequest(c, err)
		return
	}

	complaint, err := h.Complaints.Lodge(c.Request.Context(), currentUserID(c), c.PostForm("description"), image)
	if err != nil {
		h.discardUploads(c, image)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "complaint submitted",
		"complaint": complaint,
	})
}

// GetMyComplaints lists the signed-in tenant's complaints.
func (h *Handler) GetMyComplaints(c *gin.Context) {
	complaints, err := h.Complaints.TenantComplaints(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// ListComplaints lists every complaint (admin).
func (h *Handler) ListComplaints(c *gin.Context) {
	complaints, err := h.Complaints.ListComplaints(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// UpdateComplaintStatus opens or resolves a complaint (admin).
func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var req ComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	complaint, err := h.Complaints.SetStatus(c.Request.Context(), c.Param("id"), models.ComplaintStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "complaint updated",
		"complaint": complaint,
	})
}

// PostNotice publishes a notice (admin).
func (h *Handler) PostNotice(c *gin.Context) {
	var req NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notice, err := h.Complaints.PostNotice(c.Request.Context(), req.Title, req.Message, c.GetString(middleware.ContextName))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "notice posted",
		"notice":  notice,
	})
}

// ListNotices returns all notices, newest first.
func (h *Handler) ListNotices(c *gin.Context) {
	notices, err := h.Complaints.ListNotices(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}

// noticeEvent message pushed over the notice stream.
type noticeEvent struct {
	Type   string         `json:"type"`
	Notice *models.Notice `json:"notice,omitempty"`
}

// NoticeStream upgrades to a websocket and pushes new notices until the
// client goes away.
func (h *Handler) NoticeStream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.Logger.Warn("notice stream: websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	notices, unsubscribe := h.Notices.Subscribe()
	defer unsubscribe()

	// the client never sends; CloseRead handles control frames and cancels ctx on close
	ctx := conn.CloseRead(c.Request.Context())
	if err := wsjson.Write(ctx, conn, noticeEvent{Type: "ready"}); err != nil {
		return
	}

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case n, ok := <-notices:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, noticeEvent{Type: "notice", Notice: &n}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}
