package memory

import (
	"context"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/repo"
)

type UsersRepo struct {
	s *Store
}

var _ repo.Users = (*UsersRepo)(nil)

func NewUsersRepo(s *Store) *UsersRepo {
	return &UsersRepo{s: s}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byEmail[u.Email]; ok {
		return user.User{}, repo.ErrEmailTaken
	}

	r.s.users[u.ID] = u
	r.s.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byEmail[email]
	if !ok {
		return user.User{}, repo.ErrNotFound
	}

	return r.s.users[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, repo.ErrNotFound
	}

	return u, nil
}

// Delete removes an account. Reports it authored are kept.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repo.ErrNotFound
	}

	delete(r.s.users, id)
	delete(r.s.byEmail, u.Email)

	return nil
}
