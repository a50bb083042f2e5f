package store

import (
	"context"
	"sync"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

// Memory is the test double: same merge semantics as FS, no disk.
type Memory struct {
	mu    sync.Mutex
	notes map[string]models.Note // keyed by canonical id
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{notes: map[string]models.Note{}}
}

func (s *Memory) Get(ctx context.Context, canonicalID string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[canonicalID]
	if !ok {
		return models.Note{}, apperr.Wrap(apperr.ErrNotFound, "store: get "+canonicalID, nil)
	}
	return n, nil
}

func (s *Memory) Upsert(ctx context.Context, n models.Note) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.notes[n.CanonicalID]; ok {
		n = mergeUpsert(existing, n)
	}
	s.notes[n.CanonicalID] = n
	return n, nil
}

func (s *Memory) List(ctx context.Context, f Filter) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Note
	for _, n := range s.notes {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Memory) FindBySeries(ctx context.Context, seriesKey string) ([]models.Note, error) {
	return s.List(ctx, Filter{SeriesKey: seriesKey})
}
