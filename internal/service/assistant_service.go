package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
	"github.com/noah-isme/tutortrack-api/pkg/export"
	"github.com/noah-isme/tutortrack-api/pkg/mailer"
)

// Fixed replies used when the text generator is missing or failing.
const (
	ReportKeyMissing   = "API Key missing. Cannot generate report."
	ReportUnavailable  = "Error contacting AI service. Please try again later."
	PlanKeyMissing     = "API Key missing."
	PlanUnavailable    = "Error contacting AI service."
	reportSessionLimit = 5
)

const assistantPersona = "You are a professional and encouraging English tutor assistant."

type textGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type messageSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ReportRequest asks for a parent progress report.
type ReportRequest struct {
	SendEmail bool `json:"send_email"`
}

// LessonPlanRequest asks for a lesson plan.
type LessonPlanRequest struct {
	Topic           string   `json:"topic" validate:"required"`
	StudentIDs      []string `json:"student_ids" validate:"max=2"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0,max=600"`
}

// AssistantResult carries generated markdown and its HTML rendering. Fallback is true when a
// fixed reply was returned instead of generated text.
type AssistantResult struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Fallback bool   `json:"fallback"`
	Emailed  bool   `json:"emailed"`
}

// AssistantService builds prompts from ledger data and delegates to a text generator.
type AssistantService struct {
	store     snapshotter
	generator textGenerator
	mail      messageSender
	markdown  goldmark.Markdown
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAssistantService constructs the service. generator and mail may be nil.
func NewAssistantService(store snapshotter, generator textGenerator, mail messageSender, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AssistantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		store:     store,
		generator: generator,
		mail:      mail,
		markdown:  goldmark.New(),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// ProgressReport drafts a progress e-mail to the student's parent and optionally sends it.
func (s *AssistantService) ProgressReport(ctx context.Context, studentID string, req ReportRequest) (*AssistantResult, error) {
	state := s.store.Snapshot()
	student, ok := state.Student(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	sessions := ledger.StudentSessions(state.Sessions, studentID)
	if len(sessions) > reportSessionLimit {
		sessions = sessions[:reportSessionLimit]
	}

	result := s.generate(ctx, "report", reportPrompt(student, sessions), ReportKeyMissing, ReportUnavailable)
	if req.SendEmail && !result.Fallback {
		s.sendReport(ctx, student, result)
	}
	return result, nil
}

// LessonPlan drafts a lesson plan. The plan is returned to the caller and never stored.
func (s *AssistantService) LessonPlan(ctx context.Context, req LessonPlanRequest) (*AssistantResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}
	state := s.store.Snapshot()
	names := make([]string, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		st, ok := state.Student(id)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
		}
		names = append(names, st.Name)
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = ledger.DefaultDurationMinutes
	}
	return s.generate(ctx, "lesson_plan", lessonPlanPrompt(req.Topic, names, duration), PlanKeyMissing, PlanUnavailable), nil
}

func (s *AssistantService) generate(ctx context.Context, kind, prompt, missing, failed string) *AssistantResult {
	if s.generator == nil {
		s.metrics.RecordAssistant(kind, "unconfigured")
		return s.render(missing, true)
	}
	text, err := s.generator.Generate(ctx, assistantPersona, prompt)
	if err != nil {
		s.logger.Warn("text generation failed", zap.String("kind", kind), zap.Error(err))
		s.metrics.RecordAssistant(kind, "fallback")
		return s.render(failed, true)
	}
	s.metrics.RecordAssistant(kind, "ok")
	return s.render(text, false)
}

func (s *AssistantService) render(md string, fallback bool) *AssistantResult {
	out := &AssistantResult{Markdown: md, Fallback: fallback}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		s.logger.Warn("markdown rendering failed", zap.Error(err))
		return out
	}
	out.HTML = buf.String()
	return out
}

func (s *AssistantService) sendReport(ctx context.Context, student models.Student, result *AssistantResult) {
	if s.mail == nil || student.Email == "" {
		s.logger.Info("progress report not e-mailed", zap.String("student_id", student.ID), zap.Bool("mailer", s.mail != nil))
		return
	}
	err := s.mail.Send(ctx, mailer.Message{
		ToName:  parentOrDefault(student.ParentName),
		ToEmail: student.Email,
		Subject: fmt.Sprintf("Progress report for %s", student.Name),
		Text:    result.Markdown,
		HTML:    result.HTML,
	})
	if err != nil {
		s.logger.Warn("progress report e-mail failed", zap.String("student_id", student.ID), zap.Error(err))
		return
	}
	result.Emailed = true
}

func reportPrompt(student models.Student, sessions []models.Session) string {
	programs := make([]string, 0, len(student.ProgramTypes))
	for _, p := range student.ProgramTypes {
		programs = append(programs, string(p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short progress report email to the parent of %s (%s).\n\n", student.Name, parentOrDefault(student.ParentName))
	b.WriteString("Student Details:\n")
	fmt.Fprintf(&b, "- Enrolled Programs: %s\n", strings.Join(programs, ", "))
	fmt.Fprintf(&b, "- Recent Performance Notes: %s\n", student.Notes)
	if p := student.LatestProgress(""); p != nil {
		fmt.Fprintf(&b, "- Latest Skills (0-100): speaking %d, writing %d, reading %d, listening %d\n", p.Speaking, p.Writing, p.Reading, p.Listening)
	}
	if student.Balance.IsPositive() {
		fmt.Fprintf(&b, "- Outstanding Balance: %s\n", export.Money(student.Balance))
	}
	b.WriteString("\nRecent Sessions:\n")
	for _, se := range sessions {
		fmt.Fprintf(&b, "- Date: %s, Type: %s, Topic: %s, Status: %s, Notes: %s\n",
			se.Date.Format("2006-01-02"), se.Type, se.Topic, se.StatusFor(student.ID), sessionNotes(se, student.ID))
	}
	b.WriteString("\nThe email should be professional, highlight strengths, identify one area for improvement, and encourage the student.\n")
	b.WriteString("Do not mention the outstanding balance unless it is listed above.\n")
	b.WriteString("Keep it under 200 words.")
	return b.String()
}

func lessonPlanPrompt(topic string, names []string, duration int) string {
	var b strings.Builder
	b.WriteString("Create a simple, engaging English lesson plan for:\n")
	fmt.Fprintf(&b, "- Topic: %s\n", topic)
	fmt.Fprintf(&b, "- Students: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "- Duration: %d minutes\n\n", duration)
	b.WriteString("Include:\n1. Warm-up activity (5 min)\n2. Main Concept (10 min)\n3. Practice Activity (Interactive)\n4. Cool down / Review\n\n")
	b.WriteString("Format the output in clear Markdown.")
	return b.String()
}

func sessionNotes(se models.Session, studentID string) string {
	notes := se.Notes
	if entry := se.EntryFor(studentID); entry != nil && entry.Comment != "" {
		if notes != "" {
			notes += "; "
		}
		notes += entry.Comment
	}
	return notes
}

func parentOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Parent"
	}
	return name
}
