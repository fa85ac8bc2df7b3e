package repo

import (
	"context"
	"errors"

	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
)

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repo: not found")
	// ErrEmailTaken is returned when a user with the same email already exists.
	ErrEmailTaken = errors.New("repo: email already in use")
)

// Users persists accounts.
type Users interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Reports persists garbage reports. List returns newest first, ties in
// insertion order, each report carrying its author's summary.
type Reports interface {
	Create(ctx context.Context, r report.Report) (report.Report, error)
	List(ctx context.Context) ([]report.Report, error)
	UpdateStatus(ctx context.Context, id string, status report.Status) (report.Report, error)
	Delete(ctx context.Context, id string) error
}
