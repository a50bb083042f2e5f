// Package store persists notes. The markdown tree is the authoritative
// implementation; the in-memory one exists for tests and both share the
// same merge semantics, so fakes behave like the real thing.
package store

import (
	"context"

	"github.com/dtnitsch/capturemd/models"
)

// Store is the note persistence contract.
type Store interface {
	// Get returns the note for a canonical id, or apperr.ErrNotFound.
	Get(ctx context.Context, canonicalID string) (models.Note, error)

	// Upsert writes a note. Capturing an already-known canonical id is an
	// idempotent merge, never a duplicate. The stored note is returned.
	Upsert(ctx context.Context, n models.Note) (models.Note, error)

	// List returns all notes matching the filter, scanned at call time.
	List(ctx context.Context, f Filter) ([]models.Note, error)

	// FindBySeries returns all notes sharing a series key.
	FindBySeries(ctx context.Context, seriesKey string) ([]models.Note, error)
}

// mergeUpsert folds an incoming note into an existing one for the same
// canonical id. When the incoming note is the stored document itself
// (same note id, loaded then modified), it simply replaces the old
// version; a re-capture under a fresh id merges instead, keeping the
// existing identity, state, and unknown header lines.
func mergeUpsert(existing, in models.Note) models.Note {
	if existing.ID == in.ID {
		return in
	}
	existing.Merge(in)
	return existing
}
