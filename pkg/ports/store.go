package ports

import (
	"context"

	"github.com/aretw0/freelingo/pkg/domain"
)

// SessionRepository persists learner session records.
// The pipeline core never calls it; the session manager reads it once per run.
type SessionRepository interface {
	// Get retrieves the record of a user.
	// Returns domain.ErrSessionNotFound if the user has no record.
	Get(ctx context.Context, userID string) (*domain.SessionRecord, error)

	// Put creates or replaces the record of a user.
	Put(ctx context.Context, record *domain.SessionRecord) error

	// Delete removes the record of a user. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the ids of all users with a record.
	List(ctx context.Context) ([]string, error)
}
