package records

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List to a single status; the zero value lists
// every record regardless of status.
type ListFilter struct {
	Status Status
}

// Store is the persistent mapping from image id to image record (C1).
// A single record's Update is linearizable; List's bulk read is a
// snapshot that tolerates concurrent inserts racing the next pipeline
// run (see §5 of the admission pipeline spec).
type Store interface {
	Create(ctx context.Context, rec *Record) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Record, error)
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]Record, int, error)
	FindProcessedWithHash(ctx context.Context) ([]HashCandidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrNotFound is returned by Store methods when the id is unknown.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "record not found" }
