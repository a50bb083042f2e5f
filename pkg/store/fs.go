package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/ledger"
	"github.com/dtnitsch/capturemd/pkg/note"
)

// FS is the authoritative store: one markdown file per note under
// <root>/<platform dir>/<note id>.md. The ledger acts as a locator index
// so Get does not scan the whole tree on every call; a miss or a stale
// row falls back to a scan that repairs the index.
type FS struct {
	root   string
	ledger *ledger.Ledger // optional
}

var _ Store = (*FS)(nil)

// NewFS creates the store rooted at the notes directory. led may be nil.
func NewFS(root string, led *ledger.Ledger) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("store: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %s: %w", root, err)
	}
	return &FS{root: root, ledger: led}, nil
}

// Root returns the notes root directory.
func (s *FS) Root() string {
	return s.root
}

// notePath places a note in its platform directory.
func (s *FS) notePath(n models.Note) string {
	return filepath.Join(s.root, n.Platform.NotesDir(), n.ID+".md")
}

// safePath rejects paths escaping the notes root.
func (s *FS) safePath(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("store: path %s escapes notes root", path)
	}
	return nil
}

func (s *FS) Get(ctx context.Context, canonicalID string) (models.Note, error) {
	if s.ledger != nil {
		if path, err := s.ledger.GetLocator(canonicalID); err == nil && path != "" {
			n, err := s.load(filepath.Join(s.root, path))
			if err == nil && n.CanonicalID == canonicalID {
				return n, nil
			}
			// Stale index row: drop it and fall through to the scan.
			_ = s.ledger.DeleteLocator(canonicalID)
		}
	}

	var found *models.Note
	err := s.walk(ctx, func(n models.Note) error {
		if n.CanonicalID == canonicalID {
			found = &n
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return models.Note{}, err
	}
	if found == nil {
		return models.Note{}, apperr.Wrap(apperr.ErrNotFound, "store: get "+canonicalID, nil)
	}
	s.index(*found)
	return *found, nil
}

func (s *FS) Upsert(ctx context.Context, n models.Note) (models.Note, error) {
	if n.CanonicalID == "" {
		return models.Note{}, fmt.Errorf("store: upsert without canonical id")
	}
	if n.ID == "" {
		return models.Note{}, fmt.Errorf("store: upsert without note id")
	}

	existing, err := s.Get(ctx, n.CanonicalID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// First capture of this reference.
	case err != nil:
		return models.Note{}, err
	default:
		n = mergeUpsert(existing, n)
	}

	if n.Path == "" {
		n.Path = s.notePath(n)
	}
	if err := s.safePath(n.Path); err != nil {
		return models.Note{}, err
	}
	if err := s.write(n); err != nil {
		return models.Note{}, err
	}
	s.index(n)
	return n, nil
}

func (s *FS) List(ctx context.Context, f Filter) ([]models.Note, error) {
	var notes []models.Note
	err := s.walk(ctx, func(n models.Note) error {
		if f.Match(n) {
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *FS) FindBySeries(ctx context.Context, seriesKey string) ([]models.Note, error) {
	return s.List(ctx, Filter{SeriesKey: seriesKey})
}

// write persists atomically: temp file in the target dir, fsync, rename.
func (s *FS) write(n models.Note) error {
	dir := filepath.Dir(n.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".note-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(note.Encode(n)); err != nil {
		return fmt.Errorf("store: write note: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: sync note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close note: %w", err)
	}
	if err := os.Rename(tmp.Name(), n.Path); err != nil {
		return fmt.Errorf("store: rename note into place: %w", err)
	}
	success = true
	return nil
}

func (s *FS) load(path string) (models.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: read %s: %w", path, err)
	}
	n, err := note.Decode(data)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: decode %s: %w", path, err)
	}
	n.Path = path
	return n, nil
}

// walk visits every decodable note file. Undecodable files are skipped;
// they are somebody's stray markdown, not ours to break on.
func (s *FS) walk(ctx context.Context, visit func(models.Note) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		n, err := s.load(path)
		if err != nil {
			return nil
		}
		return visit(n)
	})
}

// index refreshes the locator row for a note. Index failures are not
// fatal: the scan fallback keeps Get correct.
func (s *FS) index(n models.Note) {
	if s.ledger == nil || n.Path == "" {
		return
	}
	rel, err := filepath.Rel(s.root, n.Path)
	if err != nil {
		return
	}
	_ = s.ledger.SetLocator(n.CanonicalID, string(n.Platform), rel)
}
