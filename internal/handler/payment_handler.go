package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/pkg/response"
)

type paymentService interface {
	List(ctx context.Context, filter models.PaymentFilter, page, size int) ([]ledger.PaymentView, *models.Pagination, error)
}

// PaymentHandler exposes the ledger entry list.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List godoc
// @Summary List ledger entries
// @Description Payments, package purchases and adjustments, newest first
// @Tags Payments
// @Produce json
// @Param student_id query string false "Student ID"
// @Param kind query string false "payment, package or adjustment"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		Kind:      models.EntryKind(c.Query("kind")),
	}
	views, pagination, err := h.payments.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}
