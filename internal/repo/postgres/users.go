package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

var _ repo.Users = (*UsersRepo)(nil)

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, repo.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `WHERE id = $1`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(op, func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, role, created_at
			FROM users `+where,
			arg,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, repo.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
