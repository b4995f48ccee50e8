// Package repository persists completed recommendation runs.
package repository

import (
	"context"

	"github.com/okian/mmo/internal/domain/model"
)

// RunStore provides read/write access to the run history.
type RunStore interface {
	// Save stores run. Saving an existing ID replaces it.
	Save(ctx context.Context, run model.Run) error

	// Get returns the run with id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Run, error)

	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Count returns the number of stored runs.
	Count(ctx context.Context) int

	Close() error
}
