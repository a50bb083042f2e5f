package reindex

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/media"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func cachedNote(canonical, published string) models.Note {
	n := models.NewNote(models.PlatformYouTube, canonical)
	n.SeriesKey = "Some Channel"
	n.State = models.StateCached
	n.MediaRef = "videos/yt/Some_Channel/x/" + canonical + ".mp4"
	if published != "" {
		n.SetMeta("published", published)
	}
	return n
}

var computeNow = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestComputeChronologicalSeasons(t *testing.T) {
	notes := []models.Note{
		cachedNote("march000000", "2021-03-01"),
		cachedNote("january0000", "2021-01-15"),
		cachedNote("june0000000", "2022-06-01"),
	}

	got, err := Compute(notes, computeNow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	want := []Assignment{
		{"january0000", 2021, 1},
		{"march000000", 2021, 2},
		{"june0000000", 2022, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("assignment[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestComputeInsertionShiftsOnlyLaterEpisodes(t *testing.T) {
	notes := []models.Note{
		cachedNote("march000000", "2021-03-01"),
		cachedNote("january0000", "2021-01-15"),
		cachedNote("june0000000", "2022-06-01"),
		cachedNote("february000", "2021-02-01"),
	}

	got, err := Compute(notes, computeNow)
	if err != nil {
		t.Fatal(err)
	}

	byID := map[string]Assignment{}
	for _, a := range got {
		byID[a.CanonicalID] = a
	}
	if byID["january0000"].Episode != 1 {
		t.Errorf("january = %+v, want episode 1 unchanged", byID["january0000"])
	}
	if byID["february000"].Episode != 2 {
		t.Errorf("february = %+v, want episode 2", byID["february000"])
	}
	if byID["march000000"].Episode != 3 {
		t.Errorf("march = %+v, want shifted to episode 3", byID["march000000"])
	}
	if byID["june0000000"] != (Assignment{"june0000000", 2022, 1}) {
		t.Errorf("june = %+v, want untouched", byID["june0000000"])
	}
}

func TestComputeUnknownDatesSortLast(t *testing.T) {
	withSeason := cachedNote("undated0002", "")
	withSeason.SeasonNumber = 2021

	notes := []models.Note{
		cachedNote("march000000", "2021-03-01"),
		withSeason,
		cachedNote("january0000", "2021-01-15"),
	}

	got, err := Compute(notes, computeNow)
	if err != nil {
		t.Fatal(err)
	}

	want := []Assignment{
		{"january0000", 2021, 1},
		{"march000000", 2021, 2},
		{"undated0002", 2021, 3},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("assignment[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestComputeUnknownDateNoSeasonUsesCurrentYear(t *testing.T) {
	got, err := Compute([]models.Note{cachedNote("undated0001", "")}, computeNow)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Season != 2024 {
		t.Errorf("season = %d, want compute-time year", got[0].Season)
	}
}

func TestComputeTiesBreakOnCanonicalID(t *testing.T) {
	notes := []models.Note{
		cachedNote("bbbbbbbbbbb", "2021-05-05"),
		cachedNote("aaaaaaaaaaa", "2021-05-05"),
	}
	got, err := Compute(notes, computeNow)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].CanonicalID != "aaaaaaaaaaa" || got[0].Episode != 1 {
		t.Errorf("tie order wrong: %+v", got)
	}
}

func TestComputeRejectsInconsistentSeries(t *testing.T) {
	dup := []models.Note{
		cachedNote("same0000000", "2021-01-01"),
		cachedNote("same0000000", "2021-02-01"),
	}
	if _, err := Compute(dup, computeNow); !errors.Is(err, apperr.ErrInconsistentSeries) {
		t.Errorf("duplicate canonical: err = %v", err)
	}

	parsed := models.NewNote(models.PlatformYouTube, "notcached00")
	parsed.State = models.StateParsed
	if _, err := Compute([]models.Note{parsed}, computeNow); !errors.Is(err, apperr.ErrInconsistentSeries) {
		t.Errorf("non-cached note: err = %v", err)
	}
}

func TestReindexApplyIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	for _, n := range []models.Note{
		cachedNote("march000000", "2021-03-01"),
		cachedNote("january0000", "2021-01-15"),
	} {
		if _, err := s.Upsert(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	a := NewApplier(s, nil, t.TempDir(), logger)

	changed, err := a.Reindex(ctx, "Some Channel")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if changed != 2 {
		t.Errorf("first run changed = %d, want 2", changed)
	}

	// Unchanged set: re-running is a no-op.
	changed, err = a.Reindex(ctx, "Some Channel")
	if err != nil {
		t.Fatalf("Reindex second run: %v", err)
	}
	if changed != 0 {
		t.Errorf("second run changed = %d, want 0", changed)
	}

	jan, err := s.Get(ctx, "january0000")
	if err != nil {
		t.Fatal(err)
	}
	if jan.SeasonNumber != 2021 || jan.EpisodeNumber != 1 {
		t.Errorf("january numbering = %d/%d", jan.SeasonNumber, jan.EpisodeNumber)
	}
}

func TestReindexRecreatesMissingSidecar(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	videoDir := t.TempDir()
	assetDir := filepath.Join(videoDir, "Some_Channel", "2021")
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	asset := filepath.Join(assetDir, "january0000.mp4")
	if err := os.WriteFile(asset, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Numbering already correct, asset on disk, sidecar gone.
	n := cachedNote("january0000", "2021-01-15")
	n.SeasonNumber = 2021
	n.EpisodeNumber = 1
	n.MediaRef = asset
	n.SetMeta("title", "January")
	if _, err := s.Upsert(ctx, n); err != nil {
		t.Fatal(err)
	}

	m := media.NewManager(videoDir, t.TempDir(), logger)
	a := NewApplier(s, m, t.TempDir(), logger)

	changed, err := a.Reindex(ctx, "Some Channel")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0 (numbering untouched)", changed)
	}
	if !media.NFOExists(asset) {
		t.Fatal("missing sidecar was not recreated")
	}
}

func TestReindexIgnoresUncachedNotes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	cached := cachedNote("january0000", "2021-01-15")
	bare := models.NewNote(models.PlatformYouTube, "bare0000000")
	bare.SeriesKey = "Some Channel"
	for _, n := range []models.Note{cached, bare} {
		if _, err := s.Upsert(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	a := NewApplier(s, nil, t.TempDir(), logger)
	if _, err := a.Reindex(ctx, "Some Channel"); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	got, _ := s.Get(ctx, "bare0000000")
	if got.EpisodeNumber != 0 {
		t.Errorf("bare note was numbered: %d", got.EpisodeNumber)
	}
}
