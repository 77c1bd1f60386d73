package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

type fakePaymentSrv struct {
	filter     models.PaymentFilter
	page, size int
}

func (f *fakePaymentSrv) List(_ context.Context, filter models.PaymentFilter, page, size int) ([]ledger.PaymentView, *models.Pagination, error) {
	f.filter, f.page, f.size = filter, page, size
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid entry kind")
	}
	views := []ledger.PaymentView{{Payment: models.Payment{ID: "p2", StudentID: "s2"}, StudentName: "Bob Smith"}}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: 1}, nil
}

func TestPaymentHandlerList(t *testing.T) {
	srv := &fakePaymentSrv{}
	h := NewPaymentHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/payments?student_id=s2&kind=payment&page=3", "")

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s2", srv.filter.StudentID)
	assert.Equal(t, models.EntryPayment, srv.filter.Kind)
	assert.Equal(t, 3, srv.page)
	assert.Equal(t, 20, srv.size)

	var views []map[string]interface{}
	decodeData(t, rec, &views)
	assert.Equal(t, "Bob Smith", views[0]["student_name"])
}

func TestPaymentHandlerListInvalidKind(t *testing.T) {
	h := NewPaymentHandler(&fakePaymentSrv{})
	c, rec := newTestContext(http.MethodGet, "/payments?kind=refund", "")

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
