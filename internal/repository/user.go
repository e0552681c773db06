package repository

import (
	"context"

	"newsroom/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Username and email uniqueness is enforced by the storage layer; Create
// returns domain.ErrConflict when either is already taken, so concurrent
// registrations resolve without application-level locking.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
