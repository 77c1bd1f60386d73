package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/internal/service"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

type fakeStudentSrv struct {
	lastFilter   models.StudentFilter
	lastRegister service.RegisterStudentRequest
	lastPayment  service.PaymentRequest
	lastID       string
	err          error
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Student{{ID: "s1", Name: "Alice Johnson"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentSrv) Register(_ context.Context, req service.RegisterStudentRequest) (*models.Student, error) {
	f.lastRegister = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "new", Name: req.Name}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	f.lastID = id
	return &models.Student{ID: id, Name: req.Name}, f.err
}

func (f *fakeStudentSrv) SetStatus(_ context.Context, id string, req service.StudentStatusRequest) (*models.Student, error) {
	f.lastID = id
	return &models.Student{ID: id, Status: req.Status}, f.err
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeStudentSrv) AddProgress(_ context.Context, id string, _ service.ProgressRequest) (*models.Student, error) {
	f.lastID = id
	return &models.Student{ID: id}, f.err
}

func (f *fakeStudentSrv) RecordPayment(_ context.Context, id string, req service.PaymentRequest) (*models.Payment, error) {
	f.lastID = id
	f.lastPayment = req
	return &models.Payment{ID: "p9", StudentID: id, Amount: req.Amount, Kind: models.EntryPayment}, f.err
}

func (f *fakeStudentSrv) PurchasePackage(_ context.Context, id string, _ service.PackageRequest) (*models.Student, error) {
	f.lastID = id
	return &models.Student{ID: id}, f.err
}

func (f *fakeStudentSrv) Adjust(_ context.Context, id string, req service.AdjustmentRequest) (*models.Payment, error) {
	f.lastID = id
	return &models.Payment{ID: "a1", StudentID: id, Amount: req.Amount, Kind: models.EntryAdjustment}, f.err
}

func (f *fakeStudentSrv) Overview(_ context.Context, id string) (*service.StudentOverview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.StudentOverview{Student: models.Student{ID: id}, AttendanceRate: 100}, nil
}

type fakeStatementSrv struct {
	format string
}

func (f *fakeStatementSrv) RenderStatement(_ context.Context, studentID, format string) (*service.RenderedFile, error) {
	f.format = format
	if format == "xls" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.RenderedFile{Filename: "statement-" + studentID + ".csv", ContentType: "text/csv", Body: []byte("Date\n")}, nil
}

type fakeReportSrv struct {
	req service.ReportRequest
}

func (f *fakeReportSrv) ProgressReport(_ context.Context, _ string, req service.ReportRequest) (*service.AssistantResult, error) {
	f.req = req
	return &service.AssistantResult{Markdown: service.ReportKeyMissing, Fallback: true}, nil
}

func TestStudentHandlerListParsesQuery(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv, nil, nil)
	c, rec := newTestContext(http.MethodGet, "/students?search=%20martha%20&status=Active&page=2&limit=5", "")

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "martha", srv.lastFilter.Search)
	assert.Equal(t, models.StudentActive, srv.lastFilter.Status)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Pagination["total_count"])
}

func TestStudentHandlerCreate(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv, nil, nil)
	c, rec := newTestContext(http.MethodPost, "/students", `{"name":"Dana","program_types":["One-on-One"],"initial_packages":[{"program":"One-on-One","sessions":10,"amount":"400"}]}`)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.lastRegister.InitialPackages, 1)
	assert.True(t, srv.lastRegister.InitialPackages[0].Amount.Equal(decimal.NewFromInt(400)))
}

func TestStudentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{}, nil, nil)
	c, rec := newTestContext(http.MethodPost, "/students", `{"name":`)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error["code"])
}

func TestStudentHandlerDeleteConflict(t *testing.T) {
	srv := &fakeStudentSrv{err: appErrors.Clone(appErrors.ErrConflict, "only archived students can be deleted")}
	h := NewStudentHandler(srv, nil, nil)
	c, rec := newTestContext(http.MethodDelete, "/students/s1", "")
	withParam(c, "id", "s1")

	h.Delete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "s1", srv.lastID)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}, nil, nil)
	c, rec := newTestContext(http.MethodGet, "/students/ghost", "")
	withParam(c, "id", "ghost")

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerMoneyEndpoints(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv, nil, nil)

	c, rec := newTestContext(http.MethodPost, "/students/s3/payments", `{"amount":100,"method":"Cash"}`)
	withParam(c, "id", "s3")
	h.RecordPayment(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s3", srv.lastID)
	assert.Equal(t, "Cash", srv.lastPayment.Method)

	c, rec = newTestContext(http.MethodPost, "/students/s3/packages", `{"program":"One-on-Two","sessions":5,"amount":"150"}`)
	withParam(c, "id", "s3")
	h.PurchasePackage(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/students/s3/adjustments", `{"amount":"-15","note":"late fee"}`)
	withParam(c, "id", "s3")
	h.Adjust(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var entry models.Payment
	decodeData(t, rec, &entry)
	assert.Equal(t, models.EntryAdjustment, entry.Kind)
}

func TestStudentHandlerOverviewAndStatus(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv, nil, nil)

	c, rec := newTestContext(http.MethodGet, "/students/s1/overview", "")
	withParam(c, "id", "s1")
	h.Overview(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	var overview service.StudentOverview
	decodeData(t, rec, &overview)
	assert.Equal(t, 100, overview.AttendanceRate)

	c, rec = newTestContext(http.MethodPut, "/students/s1/status", `{"status":"Archived"}`)
	withParam(c, "id", "s1")
	h.SetStatus(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/students/s1/progress", `{"reading":70}`)
	withParam(c, "id", "s1")
	h.AddProgress(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStudentHandlerStatement(t *testing.T) {
	statements := &fakeStatementSrv{}
	h := NewStudentHandler(&fakeStudentSrv{}, statements, nil)

	c, rec := newTestContext(http.MethodGet, "/students/s1/statement", "")
	withParam(c, "id", "s1")
	h.Statement(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.FormatCSV, statements.format)
	assert.Equal(t, `attachment; filename="statement-s1.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date\n", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/students/s1/statement?format=xls", "")
	withParam(c, "id", "s1")
	h.Statement(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerReport(t *testing.T) {
	reports := &fakeReportSrv{}
	h := NewStudentHandler(&fakeStudentSrv{}, nil, reports)

	c, rec := newTestContext(http.MethodPost, "/students/s1/report", "")
	withParam(c, "id", "s1")
	h.Report(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, reports.req.SendEmail)

	c, rec = newTestContext(http.MethodPost, "/students/s1/report", `{"send_email":true}`)
	withParam(c, "id", "s1")
	h.Report(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reports.req.SendEmail)
	var result service.AssistantResult
	decodeData(t, rec, &result)
	assert.True(t, result.Fallback)
}
