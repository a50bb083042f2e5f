package media

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/capturemd/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewManager(filepath.Join(t.TempDir(), "videos"), filepath.Join(t.TempDir(), "podcasts"), logger)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func ytNote(id string, cacheRequested bool) models.Note {
	n := models.NewNote(models.PlatformYouTube, id)
	n.SeriesKey = "Some Channel"
	n.CacheRequested = cacheRequested
	n.SetMeta("published", "2021-03-01")
	return n
}

func TestBuildVideoPlan(t *testing.T) {
	m := testManager(t)

	kept := ytNote("aaaaaaaaaaa", true)
	missing := ytNote("bbbbbbbbbbb", true)
	unwanted := ytNote("ccccccccccc", false)

	keptPath := filepath.Join(m.VideoDir(), "Some_Channel", "2021", "aaaaaaaaaaa.mp4")
	unwantedPath := filepath.Join(m.VideoDir(), "Some_Channel", "2021", "ccccccccccc.mp4")
	touch(t, keptPath)
	touch(t, unwantedPath)

	plan, err := m.BuildVideoPlan([]models.Note{kept, missing, unwanted})
	if err != nil {
		t.Fatalf("BuildVideoPlan: %v", err)
	}

	if len(plan.Download) != 1 || plan.Download[0].CanonicalID != "bbbbbbbbbbb" {
		t.Errorf("download = %+v", plan.Download)
	}
	if len(plan.Delete) != 1 || plan.Delete[0] != unwantedPath {
		t.Errorf("delete = %v", plan.Delete)
	}
	// The kept asset has no sidecar yet.
	if len(plan.RegenNFO) != 1 || plan.RegenNFO[0].AssetPath != keptPath {
		t.Errorf("regen = %+v", plan.RegenNFO)
	}
}

func TestBuildVideoPlanNoopWhenConsistent(t *testing.T) {
	m := testManager(t)

	n := ytNote("aaaaaaaaaaa", true)
	assetPath := filepath.Join(m.VideoDir(), "Some_Channel", "2021", "aaaaaaaaaaa.mp4")
	touch(t, assetPath)
	if err := m.WriteEpisodeNFO(assetPath, Episode{VideoID: "aaaaaaaaaaa", Title: "t", Show: "Some Channel", Season: 2021, Episode: 1}); err != nil {
		t.Fatalf("WriteEpisodeNFO: %v", err)
	}

	plan, err := m.BuildVideoPlan([]models.Note{n})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Empty() {
		t.Errorf("plan not empty: %+v", plan)
	}
}

func TestBuildVideoPlanEmptyCacheDir(t *testing.T) {
	m := testManager(t)
	// Video dir does not exist yet; the scan must treat that as empty.
	plan, err := m.BuildVideoPlan([]models.Note{ytNote("aaaaaaaaaaa", true)})
	if err != nil {
		t.Fatalf("BuildVideoPlan: %v", err)
	}
	if len(plan.Download) != 1 {
		t.Errorf("download = %+v", plan.Download)
	}
}

func TestBuildPodcastPlanKeysByNoteID(t *testing.T) {
	m := testManager(t)

	n := models.NewNote(models.PlatformPodcast, "https://feeds.example.com/ep1.mp3")
	n.SeriesKey = "Some Show"
	n.CacheRequested = true
	touch(t, filepath.Join(m.PodcastDir(), "Some_Show", n.ID+".mp3"))

	plan, err := m.BuildPodcastPlan([]models.Note{n})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Empty() {
		t.Errorf("plan not empty: %+v", plan)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Plain Channel", "Plain Channel"},
		{`What? A/B: "Test" <show>`, "What_ A_B_ _Test_ _show_"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVideoPathUsesPublicationYear(t *testing.T) {
	m := testManager(t)
	n := ytNote("aaaaaaaaaaa", true)
	path := m.VideoPath(n)
	if !strings.Contains(path, filepath.Join("Some_Channel", "2021", "aaaaaaaaaaa.mp4")) {
		t.Errorf("video path = %q", path)
	}
}
