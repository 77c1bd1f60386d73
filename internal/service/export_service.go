package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
	"github.com/noah-isme/tutortrack-api/pkg/export"
)

// Statement formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

var statementHeaders = []string{"Date", "Description", "Charge", "Credit", "Balance"}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// StatementLine is one dated movement on a student's account.
type StatementLine struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Charge      decimal.Decimal `json:"charge"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Statement is a student's account history with a running balance.
type Statement struct {
	Student        models.Student  `json:"student"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []StatementLine `json:"lines"`
}

// RenderedFile is an export ready to be streamed.
type RenderedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService builds statement datasets and renders them.
type ExportService struct {
	store     snapshotter
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(store snapshotter, csv, pdf renderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		store:     store,
		renderers: map[string]renderer{FormatCSV: csv, FormatPDF: pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// Statement derives a student's statement from the ledger history.
func (s *ExportService) Statement(ctx context.Context, studentID string) (*Statement, error) {
	state := s.store.Snapshot()
	student, ok := state.Student(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	lines := []StatementLine{}
	for _, se := range state.Sessions {
		charge := ledger.Charge(se, studentID)
		if charge.IsZero() {
			continue
		}
		desc := fmt.Sprintf("%s lesson", se.Type)
		if se.Topic != "" {
			desc += ": " + se.Topic
		}
		if st := se.StatusFor(studentID); st != models.AttendancePresent {
			desc += " (" + string(st) + ")"
		}
		lines = append(lines, StatementLine{Date: se.Date, Description: desc, Charge: charge})
	}
	for _, p := range state.Payments {
		if p.StudentID != studentID {
			continue
		}
		line := StatementLine{Date: p.Date, Description: entryDescription(p)}
		if p.Amount.IsNegative() {
			line.Charge = p.Amount.Neg()
		} else {
			line.Credit = p.Amount
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date.Before(lines[j].Date) })

	running := student.OpeningBalance
	for i := range lines {
		running = running.Add(lines[i].Charge).Sub(lines[i].Credit)
		lines[i].Balance = running
	}

	return &Statement{
		Student:        student,
		OpeningBalance: student.OpeningBalance,
		ClosingBalance: running,
		Lines:          lines,
	}, nil
}

// RenderStatement renders the statement as csv or pdf.
func (s *ExportService) RenderStatement(ctx context.Context, studentID, format string) (*RenderedFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	r, ok := s.renderers[format]
	if !ok || r == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	statement, err := s.Statement(ctx, studentID)
	if err != nil {
		return nil, err
	}

	body, err := r.Render(statement.dataset(s.now()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	if !statement.ClosingBalance.Equal(statement.Student.Balance) {
		s.logger.Warn("statement does not match running balance",
			zap.String("student_id", studentID),
			zap.String("balance", statement.Student.Balance.String()),
			zap.String("statement", statement.ClosingBalance.String()))
	}

	return &RenderedFile{
		Filename:    fmt.Sprintf("statement-%s-%s.%s", slug(statement.Student.Name), s.now().Format("20060102"), r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

func (st Statement) dataset(generated time.Time) export.Dataset {
	summary := []string{
		"Student: " + st.Student.Name,
		"Opening balance: " + export.Money(st.OpeningBalance),
		"Closing balance: " + export.Money(st.ClosingBalance),
		"Generated: " + generated.Format("2006-01-02 15:04"),
	}
	if st.Student.ParentName != "" {
		summary = append(summary[:1], append([]string{"Parent: " + st.Student.ParentName}, summary[1:]...)...)
	}

	rows := make([]map[string]string, 0, len(st.Lines))
	for _, line := range st.Lines {
		row := map[string]string{
			"Date":        line.Date.Format("2006-01-02"),
			"Description": line.Description,
			"Balance":     export.Money(line.Balance),
		}
		if !line.Charge.IsZero() {
			row["Charge"] = export.Money(line.Charge)
		}
		if !line.Credit.IsZero() {
			row["Credit"] = export.Money(line.Credit)
		}
		rows = append(rows, row)
	}

	return export.Dataset{
		Title:   "Account statement",
		Summary: summary,
		Headers: statementHeaders,
		Rows:    rows,
	}
}

func entryDescription(p models.Payment) string {
	var desc string
	switch p.Kind {
	case models.EntryPackage:
		desc = "Package purchase"
	case models.EntryAdjustment:
		desc = "Balance adjustment"
	default:
		desc = "Payment"
	}
	if p.Method != "" && p.Kind == models.EntryPayment {
		desc += " (" + p.Method + ")"
	}
	if p.Note != "" {
		desc += ": " + p.Note
	}
	return desc
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "student"
	}
	return out
}
