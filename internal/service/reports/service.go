package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/garbagewatch/internal/cache"
	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("report not found")
	ErrInvalidID       = errors.New("report id must be a valid UUID")
	ErrInvalidStatus   = errors.New("status must be one of Pending, In Progress, Resolved")
	ErrInvalidSeverity = errors.New("severity must be one of Low, Medium, High")
)

const listKey = "reports:list:v1"

// Service is the report lifecycle manager. Any authenticated caller may move
// any report to any status; authorship is fixed at submission.
type Service struct {
	repo  repo.Reports
	cache *cache.Cache
	prom  *observability.Prom
	log   *slog.Logger
}

// New wires the service. cache and prom may be nil.
func New(r repo.Reports, c *cache.Cache, prom *observability.Prom, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: r, cache: c, prom: prom, log: log}
}

// Submit stores a new Pending report authored by the caller.
func (s *Service) Submit(ctx context.Context, author user.User, req report.SubmitRequest) (report.Report, error) {
	if !report.Severity(req.Severity).Valid() {
		return report.Report{}, ErrInvalidSeverity
	}

	created, err := s.repo.Create(ctx, report.NewFromSubmission(req, author))
	if err != nil {
		return report.Report{}, fmt.Errorf("create report: %w", err)
	}

	s.invalidate()
	s.prom.IncReportsSubmitted()
	s.log.InfoContext(ctx, "report submitted", "report_id", created.ID, "author_id", author.ID)

	return created, nil
}

// List returns every report, newest first.
func (s *Service) List(ctx context.Context) ([]report.Report, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}

	if v, ok := s.cache.Get(listKey); ok {
		s.prom.ObserveListCache(true)
		return cloneReports(v.([]report.Report)), nil
	}
	s.prom.ObserveListCache(false)

	gen := s.cache.Generation()

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetIfCurrent(gen, listKey, cloneReports(items))

	return items, nil
}

// UpdateStatus sets a report's status directly.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (report.Report, error) {
	if err := uuid.Validate(id); err != nil {
		return report.Report{}, ErrInvalidID
	}

	status, err := report.ParseStatus(rawStatus)
	if err != nil {
		return report.Report{}, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return report.Report{}, ErrNotFound
		}
		return report.Report{}, fmt.Errorf("update report status: %w", err)
	}

	s.invalidate()
	s.prom.IncStatusChange(status.String())
	s.log.InfoContext(ctx, "report status updated", "report_id", id, "status", status)

	return updated, nil
}

// Delete removes a report in any state.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := uuid.Validate(id); err != nil {
		return ErrInvalidID
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete report: %w", err)
	}

	s.invalidate()
	s.prom.IncReportsDeleted()
	s.log.InfoContext(ctx, "report deleted", "report_id", id)

	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func cloneReports(in []report.Report) []report.Report {
	out := make([]report.Report, len(in))
	copy(out, in)
	return out
}
