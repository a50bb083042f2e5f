package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

func setupFS(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestFSUpsertAndGet(t *testing.T) {
	s := setupFS(t)
	ctx := context.Background()

	n := models.NewNote(models.PlatformYouTube, "dQw4w9WgXcQ")
	stored, err := s.Upsert(ctx, n)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.Path == "" {
		t.Fatal("stored note has no path")
	}
	if !strings.Contains(stored.Path, filepath.Join("youtube", n.ID+".md")) {
		t.Errorf("note stored at %q, want platform dir layout", stored.Path)
	}

	got, err := s.Get(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != n.ID || got.Platform != models.PlatformYouTube {
		t.Errorf("got %+v", got)
	}

	_, err = s.Get(ctx, "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestFSUpsertIdempotentMerge(t *testing.T) {
	s := setupFS(t)
	ctx := context.Background()

	first := models.NewNote(models.PlatformGitHub, "golang/go")
	first.AddTags("reference")
	if _, err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	// Capturing the same reference again produces a fresh uuid, but the
	// store must merge into the existing note, not duplicate it.
	second := models.NewNote(models.PlatformGitHub, "golang/go")
	second.AddTags("compilers")
	merged, err := s.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if merged.ID != first.ID {
		t.Errorf("merge changed note identity: %q -> %q", first.ID, merged.ID)
	}
	for _, tag := range []string{"inbox", "reference", "compilers"} {
		if !merged.HasTag(tag) {
			t.Errorf("merged note missing tag %q: %v", tag, merged.Tags)
		}
	}

	all, err := s.List(ctx, Filter{Platform: models.PlatformGitHub})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(notes) = %d, want 1 (no duplicates)", len(all))
	}
}

func TestFSListFilters(t *testing.T) {
	s := setupFS(t)
	ctx := context.Background()

	yt := models.NewNote(models.PlatformYouTube, "aaaaaaaaaaa")
	yt.State = models.StateParsed
	yt.SeriesKey = "Channel A"
	gh := models.NewNote(models.PlatformGitHub, "golang/go")

	for _, n := range []models.Note{yt, gh} {
		if _, err := s.Upsert(ctx, n); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	parsed, err := s.List(ctx, Filter{State: models.StateParsed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(parsed) != 1 || parsed[0].CanonicalID != "aaaaaaaaaaa" {
		t.Errorf("parsed = %+v", parsed)
	}

	series, err := s.FindBySeries(ctx, "Channel A")
	if err != nil {
		t.Fatalf("FindBySeries: %v", err)
	}
	if len(series) != 1 {
		t.Errorf("series notes = %d, want 1", len(series))
	}
}

func TestFSPreservesForeignMarkdown(t *testing.T) {
	s := setupFS(t)
	ctx := context.Background()

	// A stray markdown file without our header must not break scans.
	stray := filepath.Join(s.Root(), "random.md")
	if err := os.WriteFile(stray, []byte("# just some notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := models.NewNote(models.PlatformSteam, "620")
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	notes, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("len(notes) = %d, want 1", len(notes))
	}
}

func TestMemoryMatchesFSSemantics(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	first := models.NewNote(models.PlatformReddit, "abc123")
	if _, err := mem.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := models.NewNote(models.PlatformReddit, "abc123")
	second.AddTags("golang")
	merged, err := mem.Upsert(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if merged.ID != first.ID || !merged.HasTag("golang") {
		t.Errorf("memory merge = %+v", merged)
	}

	_, err = mem.Get(ctx, "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}
