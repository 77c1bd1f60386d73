package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/internal/service"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
	"github.com/noah-isme/tutortrack-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Register(ctx context.Context, req service.RegisterStudentRequest) (*models.Student, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error)
	SetStatus(ctx context.Context, id string, req service.StudentStatusRequest) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	AddProgress(ctx context.Context, id string, req service.ProgressRequest) (*models.Student, error)
	RecordPayment(ctx context.Context, id string, req service.PaymentRequest) (*models.Payment, error)
	PurchasePackage(ctx context.Context, id string, req service.PackageRequest) (*models.Student, error)
	Adjust(ctx context.Context, id string, req service.AdjustmentRequest) (*models.Payment, error)
	Overview(ctx context.Context, id string) (*service.StudentOverview, error)
}

type statementService interface {
	RenderStatement(ctx context.Context, studentID, format string) (*service.RenderedFile, error)
}

type reportService interface {
	ProgressReport(ctx context.Context, studentID string, req service.ReportRequest) (*service.AssistantResult, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students   studentService
	statements statementService
	reports    reportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, statements statementService, reports reportService) *StudentHandler {
	return &StudentHandler{students: students, statements: statements, reports: reports}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by student or parent name"
// @Param status query string false "Active or Archived"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   models.StudentStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 20),
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register student
// @Description Registers an active student, optionally with prepaid packages per program
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetStatus godoc
// @Summary Archive or re-activate a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.StudentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [put]
func (h *StudentHandler) SetStatus(c *gin.Context) {
	var req service.StudentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete an archived student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddProgress godoc
// @Summary Record a skill assessment
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ProgressRequest true "Progress payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/progress [post]
func (h *StudentHandler) AddProgress(c *gin.Context) {
	var req service.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.AddProgress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Overview godoc
// @Summary Student detail page
// @Description Sessions, entries, attendance rate and latest assessments from one snapshot
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/overview [get]
func (h *StudentHandler) Overview(c *gin.Context) {
	overview, err := h.students.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// RecordPayment godoc
// @Summary Record a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *StudentHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	payment, err := h.students.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// PurchasePackage godoc
// @Summary Purchase a session package
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PackageRequest true "Package payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/packages [post]
func (h *StudentHandler) PurchasePackage(c *gin.Context) {
	var req service.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	student, err := h.students.PurchasePackage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Adjust godoc
// @Summary Adjust a balance
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/adjustments [post]
func (h *StudentHandler) Adjust(c *gin.Context) {
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	entry, err := h.students.Adjust(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Statement godoc
// @Summary Download account statement
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /students/{id}/statement [get]
func (h *StudentHandler) Statement(c *gin.Context) {
	if h.statements == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	file, err := h.statements.RenderStatement(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Report godoc
// @Summary Draft a progress report for the parent
// @Description Falls back to a fixed message when the text generator is unavailable
// @Tags Assistant
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ReportRequest false "Report options"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report [post]
func (h *StudentHandler) Report(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req service.ReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid payload"))
			return
		}
	}
	result, err := h.reports.ProgressReport(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
