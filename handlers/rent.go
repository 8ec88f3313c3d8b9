package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pg-hostel/models"
	"pg-hostel/services"
)

// ReviewProofRequest new review status for a rent proof.
type ReviewProofRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmitRentProof stores a manual rent payment proof for the signed-in tenant.
// Multipart fields: month, year, amount and file "proof".
func (h *Handler) SubmitRentProof(c *gin.Context) {
	amount, err := decimal.NewFromString(c.PostForm("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount: not a number", "field": "amount"})
		return
	}
	year := 0
	if y := c.PostForm("year"); y != "" {
		if year, err = strconv.Atoi(y); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year: not a number", "field": "year"})
			return
		}
	}

	proofURL, err := h.saveUpload(c, "proof")
	if errors.Is(err, errNoUpload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required", "field": "proof"})
		return
	}
	if err != nil {
		badRequest(c, err)
		return
	}

	proof, err := h.Proofs.Submit(c.Request.Context(), services.ProofSubmission{
		TenantID: currentUserID(c),
		Month:    c.PostForm("month"),
		Year:     year,
		Amount:   amount,
		ProofURL: proofURL,
	})
	if err != nil {
		h.discardUploads(c, proofURL)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "rent proof submitted",
		"rent":    proof,
	})
}

// GetMyRentProofs lists the signed-in tenant's proofs.
func (h *Handler) GetMyRentProofs(c *gin.Context) {
	proofs, err := h.Proofs.ListForTenant(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rents": proofs})
}

// ListRentProofs lists every proof, optionally for one period (admin).
func (h *Handler) ListRentProofs(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	proofs, err := h.Proofs.ListAll(c.Request.Context(), c.Query("month"), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rents": proofs})
}

// ReviewRentProof approves or rejects a proof (admin).
func (h *Handler) ReviewRentProof(c *gin.Context) {
	var req ReviewProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	proof, err := h.Proofs.Review(c.Request.Context(), c.Param("id"), models.RentProofStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "rent proof updated",
		"rent":    proof,
	})
}

// TrackRent returns the payment status of every tenant for a period (admin).
func (h *Handler) TrackRent(c *gin.Context) {
	month, year, ok := periodQuery(c)
	if !ok {
		return
	}
	rows, err := h.Reports.Build(c.Request.Context(), month, year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month":   month,
		"year":    year,
		"rows":    rows,
		"summary": services.Summarize(rows),
	})
}

// ExportRent downloads the period report as an Excel workbook (admin).
func (h *Handler) ExportRent(c *gin.Context) {
	month, year, ok := periodQuery(c)
	if !ok {
		return
	}
	rows, err := h.Reports.Build(c.Request.Context(), month, year)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.ExportReportXLSX(&buf, month, year, rows); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("rent_%s_%d.xlsx", month, year)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func periodQuery(c *gin.Context) (string, int, bool) {
	month := c.Query("month")
	year, err := strconv.Atoi(c.Query("year"))
	if month == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month and year query parameters are required"})
		return "", 0, false
	}
	return month, year, true
}
