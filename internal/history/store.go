// Package history records past interpretations.
package history

import (
	"context"
	"errors"

	"glove-backend/internal/models"
)

// DefaultListLimit applies when List is called without a positive limit.
const DefaultListLimit = 50

// ErrPersistence wraps failures of a durable backend.
var ErrPersistence = errors.New("history persistence failure")

// Store is the interpretation history contract.
//
// Save assigns a fresh id and fills a zero timestamp with the current time.
// List returns at most limit records ordered by timestamp descending, newest
// insertion first among equal timestamps. Get reports found=false with a nil
// error when the id is unknown.
type Store interface {
	Save(ctx context.Context, rec *models.InterpretationRecord) (*models.InterpretationRecord, error)
	List(ctx context.Context, limit int) ([]*models.InterpretationRecord, error)
	Get(ctx context.Context, id string) (*models.InterpretationRecord, bool, error)
}
