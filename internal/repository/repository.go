// Package repository persists sessions and their participants. Every backend
// exposes the same Store contract; Update is the only way to mutate a stored
// session and it serialises read-modify-write per session.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// UpdateFunc mutates a session in place. Returning an error aborts the update
// and leaves the stored session untouched.
type UpdateFunc func(s *model.Session) error

// Store is the session store.
type Store interface {
	// Create persists a new session with its participants.
	Create(ctx context.Context, s *model.Session) error

	// GetByID returns the session with the given id or ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Session, error)

	// GetCurrent returns the most recently created session that is not
	// closed, or ErrNotFound.
	GetCurrent(ctx context.Context) (*model.Session, error)

	// ListByStatus returns every session in status, oldest first.
	ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Session, error)

	// Update loads the session, applies fn and persists the result
	// atomically with respect to other updates of the same session. The
	// version is bumped on success. The error from fn is returned as is.
	Update(ctx context.Context, id string, fn UpdateFunc) (*model.Session, error)

	// Close releases any resources held by the store.
	Close() error
}
