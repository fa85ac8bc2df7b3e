package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/geocoder89/garbagewatch/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = security.ErrPasswordTooLong
)

type TokenIssuer interface {
	Issue(subjectID string) (string, error)
}

// Service handles registration, login and profile lookups.
type Service struct {
	users  repo.Users
	tokens TokenIssuer
	log    *slog.Logger
}

func New(users repo.Users, tokens TokenIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, tokens: tokens, log: log}
}

// Register creates a user with role "user" and returns a fresh token.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (user.User, string, error) {
	// binding's max counts characters; bcrypt counts bytes
	if len(req.Password) > security.MaxPasswordBytes {
		return user.User{}, "", ErrPasswordTooLong
	}

	// fast path; the unique index still settles concurrent signups
	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return user.User{}, "", ErrEmailTaken
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return user.User{}, "", fmt.Errorf("lookup email: %w", err)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return user.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.New(req.Name, req.Email, hash, user.RoleUser))
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return user.User{}, "", ErrEmailTaken
		}
		return user.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return user.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, token, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			security.BurnCompare(password)
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", fmt.Errorf("lookup email: %w", err)
	}

	if !security.VerifyPassword(u.PasswordHash, password) {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return user.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return u, token, nil
}
