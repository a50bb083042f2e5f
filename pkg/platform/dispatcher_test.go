package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeCacher struct {
	asset models.MediaAsset
	err   error
}

func (c fakeCacher) Cache(ctx context.Context, n models.Note) (models.MediaAsset, error) {
	return c.asset, c.err
}

func TestDispatcherParseSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFetcher(models.PlatformGitHub, FetcherFunc(func(ctx context.Context, n models.Note) (models.Metadata, error) {
		return models.Metadata{Title: "golang/go", Author: "golang"}, nil
	}))
	s := store.NewMemory()
	d := NewDispatcher(reg, s, testLogger())

	n := models.NewNote(models.PlatformGitHub, "golang/go")
	ctx := context.Background()
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	parsed, err := d.Parse(ctx, n)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.State != models.StateParsed {
		t.Errorf("state = %s", parsed.State)
	}
	if parsed.Meta("title") != "golang/go" {
		t.Errorf("title = %q", parsed.Meta("title"))
	}

	stored, err := s.Get(ctx, "golang/go")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.State != models.StateParsed {
		t.Errorf("stored state = %s", stored.State)
	}
}

func TestDispatcherParseFailureIsolated(t *testing.T) {
	// Three notes; the middle one's fetch fails. The failure must be
	// recorded on that note only, and the other two must parse.
	reg := NewRegistry()
	reg.RegisterFetcher(models.PlatformGitHub, FetcherFunc(func(ctx context.Context, n models.Note) (models.Metadata, error) {
		if n.CanonicalID == "bad/repo" {
			return models.Metadata{}, apperr.Wrap(apperr.ErrNetwork, "fetch", errors.New("connection refused"))
		}
		return models.Metadata{Title: n.CanonicalID}, nil
	}))
	s := store.NewMemory()
	d := NewDispatcher(reg, s, testLogger())
	ctx := context.Background()

	ids := []string{"good/one", "bad/repo", "good/two"}
	var failures int
	for _, id := range ids {
		n := models.NewNote(models.PlatformGitHub, id)
		if _, err := s.Upsert(ctx, n); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
		if _, err := d.Parse(ctx, n); err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}

	bad, _ := s.Get(ctx, "bad/repo")
	if bad.State != models.StateFailed {
		t.Errorf("bad state = %s", bad.State)
	}
	if bad.FailureKind != "NetworkError" {
		t.Errorf("failure kind = %q", bad.FailureKind)
	}
	for _, id := range []string{"good/one", "good/two"} {
		n, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if n.State != models.StateParsed {
			t.Errorf("%s state = %s", id, n.State)
		}
	}
}

func TestDispatcherParseUnsupportedPlatform(t *testing.T) {
	s := store.NewMemory()
	d := NewDispatcher(NewRegistry(), s, testLogger())
	ctx := context.Background()

	n := models.NewNote(models.PlatformSteam, "440")
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	failed, err := d.Parse(ctx, n)
	if !errors.Is(err, apperr.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if failed.State != models.StateFailed {
		t.Errorf("state = %s", failed.State)
	}
}

func TestDispatcherCachePersistsIntermediateState(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCacher(models.PlatformYouTube, fakeCacher{
		asset: models.MediaAsset{LocalPath: "/media/videos/yt/c/2024/abc12345678.mp4", Duration: 613, Format: "mp4"},
	})
	s := store.NewMemory()
	d := NewDispatcher(reg, s, testLogger())
	ctx := context.Background()

	n := models.NewNote(models.PlatformYouTube, "abc12345678")
	n.SeriesKey = "c"
	if err := n.MarkParsed(); err != nil {
		t.Fatalf("MarkParsed: %v", err)
	}
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cached, err := d.Cache(ctx, n)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	if cached.State != models.StateCached {
		t.Errorf("state = %s", cached.State)
	}
	if cached.MediaRef != "/media/videos/yt/c/2024/abc12345678.mp4" {
		t.Errorf("media_ref = %q", cached.MediaRef)
	}
	if cached.Meta("duration") != "613" {
		t.Errorf("duration = %q", cached.Meta("duration"))
	}
}

func TestDispatcherCacheFailureKeepsNoteRetriable(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCacher(models.PlatformYouTube, fakeCacher{
		err: apperr.Wrap(apperr.ErrDownloadFailed, "yt-dlp", errors.New("format unavailable")),
	})
	s := store.NewMemory()
	d := NewDispatcher(reg, s, testLogger())
	ctx := context.Background()

	n := models.NewNote(models.PlatformYouTube, "abc12345678")
	if err := n.MarkParsed(); err != nil {
		t.Fatalf("MarkParsed: %v", err)
	}
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	failed, err := d.Cache(ctx, n)
	if !errors.Is(err, apperr.ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
	if failed.State != models.StateFailed {
		t.Errorf("state = %s", failed.State)
	}
	if failed.FailureKind != "DownloadFailed" {
		t.Errorf("failure kind = %q", failed.FailureKind)
	}
	if failed.MediaRef != "" {
		t.Errorf("media_ref should be empty, got %q", failed.MediaRef)
	}

	// The intermediate caching-requested state was persisted before the
	// download, and the failure overwrote it.
	stored, _ := s.Get(ctx, "abc12345678")
	if stored.State != models.StateFailed {
		t.Errorf("stored state = %s", stored.State)
	}
}
