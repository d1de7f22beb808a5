// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/slicetally/internal/models"
)

// Store defines the interface for snapshot storage.
// The in-memory group store is the source of truth; a Store only keeps the
// latest full snapshot of it so a restart can pick up where it left off.
type Store interface {
	// SaveState replaces the persisted snapshot with state.
	// Implementations must leave the previous snapshot intact if they fail.
	SaveState(ctx context.Context, state *models.State) error

	// LoadState returns the persisted snapshot.
	// An empty state and nil error are returned when nothing was saved yet.
	// A snapshot that exists but cannot be read yields an error.
	LoadState(ctx context.Context) (*models.State, error)

	// Close releases any resources held by the store.
	Close() error
}
