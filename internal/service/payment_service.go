package service

import (
	"context"
	"sort"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

type snapshotter interface {
	Snapshot() *ledger.State
}

// PaymentService lists ledger entries.
type PaymentService struct {
	store snapshotter
}

// NewPaymentService constructs the payment service.
func NewPaymentService(store snapshotter) *PaymentService {
	return &PaymentService{store: store}
}

// List returns entries decorated with student names, newest first, plus pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter, page, size int) ([]ledger.PaymentView, *models.Pagination, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid entry kind")
	}
	state := s.store.Snapshot()
	names := make(map[string]string, len(state.Students))
	for _, st := range state.Students {
		names[st.ID] = st.Name
	}

	out := []ledger.PaymentView{}
	for _, p := range state.Payments {
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		name, ok := names[p.StudentID]
		if !ok {
			name = "Unknown"
		}
		out = append(out, ledger.PaymentView{Payment: p, StudentName: name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	page, size = normalizePage(page, size)
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(out)}
	start := (page - 1) * size
	if start >= len(out) {
		return []ledger.PaymentView{}, pagination, nil
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], pagination, nil
}
