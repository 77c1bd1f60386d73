package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/internal/service"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
	"github.com/noah-isme/tutortrack-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, req service.SessionRequest) (*models.Session, error)
	Update(ctx context.Context, id string, req service.SessionRequest) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type lessonPlanner interface {
	LessonPlan(ctx context.Context, req service.LessonPlanRequest) (*service.AssistantResult, error)
}

// SessionHandler exposes lesson logging endpoints.
type SessionHandler struct {
	sessions sessionService
	planner  lessonPlanner
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions sessionService, planner lessonPlanner) *SessionHandler {
	return &SessionHandler{sessions: sessions, planner: planner}
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param student_id query string false "Only sessions of this student"
// @Param from query string false "Inclusive lower bound (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "Exclusive upper bound (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), models.SessionFilter{StudentID: c.Query("student_id"), From: from, To: to})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Log a session
// @Description Charges every Present or Late participant an equal share of the price
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.SessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Edit a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// LessonPlan godoc
// @Summary Draft a lesson plan
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body service.LessonPlanRequest true "Lesson plan payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/lesson-plan [post]
func (h *SessionHandler) LessonPlan(c *gin.Context) {
	if h.planner == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req service.LessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	result, err := h.planner.LessonPlan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
