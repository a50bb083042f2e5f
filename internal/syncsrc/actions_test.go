package syncsrc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/classify"
	"github.com/dtnitsch/capturemd/pkg/ledger"
	"github.com/dtnitsch/capturemd/pkg/platform"
	"github.com/dtnitsch/capturemd/pkg/store"
)

type fakeSource struct {
	entries []models.RemoteInboxEntry
	marked  []string
}

func (s *fakeSource) Name() string { return "freshrss" }

func (s *fakeSource) Pull(ctx context.Context) ([]models.RemoteInboxEntry, error) {
	return s.entries, nil
}

func (s *fakeSource) MarkProcessed(ctx context.Context, remoteID string, action models.SourceAction) error {
	s.marked = append(s.marked, remoteID)
	return nil
}

func testApp(t *testing.T, fetch platform.FetcherFunc) (*common.App, store.Store) {
	t.Helper()

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	s := store.NewMemory()
	reg := platform.NewRegistry()
	reg.RegisterFetcher(models.PlatformGitHub, fetch)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return &common.App{
		Logger:     logger,
		Ledger:     led,
		Store:      s,
		Classifier: classify.New(""),
		Dispatcher: platform.NewDispatcher(reg, s, logger),
	}, s
}

func TestSyncEntryRetriesFailedNote(t *testing.T) {
	app, s := testApp(t, func(ctx context.Context, n models.Note) (models.Metadata, error) {
		return models.Metadata{Title: "golang/go"}, nil
	})
	ctx := context.Background()

	// The note failed in an earlier run; this pull must re-attempt the
	// capture instead of releasing the remote entry over a dead note.
	n := models.NewNote(models.PlatformGitHub, "golang/go")
	if err := n.MarkFailed("NetworkError", "connection refused"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src := &fakeSource{}
	entry := models.RemoteInboxEntry{
		Source:    "freshrss",
		RemoteID:  "item-1",
		Reference: "https://github.com/golang/go",
	}
	res := syncEntry(ctx, app, src, entry, models.SourceActionKeep)
	if res.Status != "success" {
		t.Fatalf("status = %q (%s)", res.Status, res.Error)
	}

	got, err := s.Get(ctx, "golang/go")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != models.StateParsed {
		t.Errorf("state = %s, want parsed", got.State)
	}
	if len(src.marked) != 1 || src.marked[0] != "item-1" {
		t.Errorf("marked = %v, want [item-1]", src.marked)
	}
	resolved, err := app.Ledger.IsResolved("freshrss", "item-1")
	if err != nil {
		t.Fatalf("IsResolved: %v", err)
	}
	if !resolved {
		t.Error("entry not resolved in ledger")
	}
}

func TestSyncEntryKeepsEntryWhenCaptureFails(t *testing.T) {
	app, _ := testApp(t, func(ctx context.Context, n models.Note) (models.Metadata, error) {
		return models.Metadata{}, apperr.Wrap(apperr.ErrNetwork, "fetch", errors.New("connection refused"))
	})
	ctx := context.Background()

	src := &fakeSource{}
	entry := models.RemoteInboxEntry{
		Source:    "freshrss",
		RemoteID:  "item-2",
		Reference: "https://github.com/golang/go",
	}
	res := syncEntry(ctx, app, src, entry, models.SourceActionDiscard)
	if res.Status != "failed" {
		t.Fatalf("status = %q, want failed", res.Status)
	}

	if len(src.marked) != 0 {
		t.Errorf("remote entry marked despite failed capture: %v", src.marked)
	}
	resolved, err := app.Ledger.IsResolved("freshrss", "item-2")
	if err != nil {
		t.Fatalf("IsResolved: %v", err)
	}
	if resolved {
		t.Error("ledger resolved a failed capture")
	}
}
