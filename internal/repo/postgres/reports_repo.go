package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

var _ repo.Reports = (*ReportsRepo)(nil)

// constructor function

func NewReportsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReportsRepo {
	return &ReportsRepo{
		pool: pool,
		prom: prom,
	}
}

// reportColumns selects a report joined with its author's public fields.
// The join is LEFT so reports survive their author.
const reportColumns = `r.id, r.location, r.garbage_type, r.severity, r.status,
	r.description, r.image, r.reported_by,
	COALESCE(u.name, ''), COALESCE(u.email, ''), r.created_at`

func (r *ReportsRepo) Create(ctx context.Context, rep report.Report) (report.Report, error) {
	// timestamptz keeps microseconds
	rep.CreatedAt = rep.CreatedAt.UTC().Truncate(time.Microsecond)

	err := r.prom.ObserveDB("reports.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO reports (id, location, garbage_type, severity, status, description, image, reported_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rep.ID, rep.Location, rep.GarbageType, string(rep.Severity), string(rep.Status),
			rep.Description, rep.Image, rep.ReportedBy.ID, rep.CreatedAt,
		)
		return e
	})

	if err != nil {
		return report.Report{}, err
	}

	return rep, nil
}

func (r *ReportsRepo) List(ctx context.Context) ([]report.Report, error) {
	output := make([]report.Report, 0)

	err := r.prom.ObserveDB("reports.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+reportColumns+`
			FROM reports r
			LEFT JOIN users u ON u.id = r.reported_by
			ORDER BY r.created_at DESC, r.seq ASC`)
		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			rep, err := scanReport(rows)
			if err != nil {
				return err
			}
			output = append(output, rep)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *ReportsRepo) UpdateStatus(ctx context.Context, id string, status report.Status) (report.Report, error) {
	var rep report.Report

	// single statement: the row update is atomic, concurrent writers are last-write-wins
	err := r.prom.ObserveDB("reports.update_status", func() error {
		row := r.pool.QueryRow(ctx,
			`WITH r AS (
				UPDATE reports SET status = $2
				WHERE id = $1
				RETURNING id, location, garbage_type, severity, status, description, image, reported_by, created_at
			)
			SELECT `+reportColumns+`
			FROM r
			LEFT JOIN users u ON u.id = r.reported_by`,
			id, string(status),
		)

		var err error
		rep, err = scanReport(row)
		return err
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Report{}, repo.ErrNotFound
		}
		return report.Report{}, err
	}

	return rep, nil
}

func (r *ReportsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("reports.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func scanReport(row pgx.Row) (report.Report, error) {
	var (
		rep      report.Report
		severity string
		status   string
	)

	err := row.Scan(
		&rep.ID,
		&rep.Location,
		&rep.GarbageType,
		&severity,
		&status,
		&rep.Description,
		&rep.Image,
		&rep.ReportedBy.ID,
		&rep.ReportedBy.Name,
		&rep.ReportedBy.Email,
		&rep.CreatedAt,
	)
	if err != nil {
		return report.Report{}, err
	}

	rep.Severity = report.Severity(severity)
	rep.Status = report.Status(status)
	rep.CreatedAt = rep.CreatedAt.UTC()

	return rep, nil
}
