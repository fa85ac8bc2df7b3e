package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/repo"
)

type ReportsRepo struct {
	s *Store
}

var _ repo.Reports = (*ReportsRepo)(nil)

func NewReportsRepo(s *Store) *ReportsRepo {
	return &ReportsRepo{s: s}
}

func (r *ReportsRepo) Create(ctx context.Context, rep report.Report) (report.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	row := storedReport{seq: r.s.seq, authorID: rep.ReportedBy.ID, report: rep}
	r.s.reports[rep.ID] = row

	return r.s.withAuthor(row), nil
}

func (r *ReportsRepo) List(ctx context.Context) ([]report.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := make([]storedReport, 0, len(r.s.reports))
	for _, row := range r.s.reports {
		rows = append(rows, row)
	}

	// newest first, ties in insertion order
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq < b.seq
	})

	out := make([]report.Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.s.withAuthor(row))
	}

	return out, nil
}

func (r *ReportsRepo) UpdateStatus(ctx context.Context, id string, status report.Status) (report.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.reports[id]
	if !ok {
		return report.Report{}, repo.ErrNotFound
	}

	row.report.Status = status
	r.s.reports[id] = row

	return r.s.withAuthor(row), nil
}

func (r *ReportsRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reports[id]; !ok {
		return repo.ErrNotFound
	}

	delete(r.s.reports, id)

	return nil
}
