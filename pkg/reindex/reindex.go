// Package reindex keeps a series' episode numbering chronological.
// Compute is pure: it derives the complete season/episode assignment for
// a series from publish dates alone. Apply writes only what changed, so
// a crash mid-apply is repaired by simply running again.
package reindex

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/media"
	"github.com/dtnitsch/capturemd/pkg/store"
)

// Assignment is one note's computed numbering.
type Assignment struct {
	CanonicalID string
	Season      int
	Episode     int
}

// Compute derives the full numbering for one series' cached notes.
// Season is the year of original publication; episodes rank by publish
// time ascending with canonical-id order breaking ties. Notes with
// unknown dates sort last within their season (their already-assigned
// season when present, else the current year) in canonical-id order.
func Compute(notes []models.Note, now time.Time) ([]Assignment, error) {
	type item struct {
		note   models.Note
		at     time.Time
		known  bool
		season int
	}

	seen := map[string]bool{}
	seasons := map[int][]item{}
	for _, n := range notes {
		if seen[n.CanonicalID] {
			return nil, apperr.Wrap(apperr.ErrInconsistentSeries,
				"reindex", fmt.Errorf("duplicate canonical id %s", n.CanonicalID))
		}
		seen[n.CanonicalID] = true
		if n.State != models.StateCached {
			return nil, apperr.Wrap(apperr.ErrInconsistentSeries,
				"reindex", fmt.Errorf("note %s is %s, not cached", n.CanonicalID, n.State))
		}

		it := item{note: n}
		if t, ok := n.PublishedAt(); ok {
			it.at = t
			it.known = true
			it.season = t.Year()
		} else if n.SeasonNumber > 0 {
			it.season = n.SeasonNumber
		} else {
			it.season = now.Year()
		}
		seasons[it.season] = append(seasons[it.season], it)
	}

	var assignments []Assignment
	years := make([]int, 0, len(seasons))
	for year := range seasons {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		items := seasons[year]
		sort.Slice(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if a.known != b.known {
				return a.known // unknown dates sort last
			}
			if a.known && !a.at.Equal(b.at) {
				return a.at.Before(b.at)
			}
			return a.note.CanonicalID < b.note.CanonicalID
		})
		for i, it := range items {
			assignments = append(assignments, Assignment{
				CanonicalID: it.note.CanonicalID,
				Season:      year,
				Episode:     i + 1,
			})
		}
	}
	return assignments, nil
}

// Applier writes computed assignments back to the store and regenerates
// NFO sidecars for assets on disk.
type Applier struct {
	store   store.Store
	media   *media.Manager // nil skips sidecar rewrites
	lockDir string
	logger  *slog.Logger
}

func NewApplier(s store.Store, m *media.Manager, lockDir string, logger *slog.Logger) *Applier {
	return &Applier{store: s, media: m, lockDir: lockDir, logger: logger}
}

// lockPath hashes the series key: channel names are not filename-safe.
func (a *Applier) lockPath(seriesKey string) string {
	sum := sha256.Sum256([]byte(seriesKey))
	return filepath.Join(a.lockDir, fmt.Sprintf(".reindex-%x.lock", sum[:8]))
}

// Reindex renumbers one series under its file lock. It returns how many
// notes changed; zero means the numbering was already correct.
func (a *Applier) Reindex(ctx context.Context, seriesKey string) (int, error) {
	lock := flock.New(a.lockPath(seriesKey))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("reindex: lock series %q: %w", seriesKey, err)
	}
	if !locked {
		return 0, fmt.Errorf("reindex: series %q is locked", seriesKey)
	}
	defer func() { _ = lock.Unlock() }()

	all, err := a.store.FindBySeries(ctx, seriesKey)
	if err != nil {
		return 0, err
	}
	var cached []models.Note
	for _, n := range all {
		if n.State == models.StateCached {
			cached = append(cached, n)
		}
	}
	if len(cached) == 0 {
		return 0, nil
	}

	assignments, err := Compute(cached, time.Now())
	if err != nil {
		return 0, err
	}

	byCanonical := map[string]models.Note{}
	for _, n := range cached {
		byCanonical[n.CanonicalID] = n
	}

	var assets map[string]string
	if a.media != nil {
		if assets, err = a.media.CachedVideos(); err != nil {
			return 0, err
		}
	}

	changed := 0
	for _, as := range assignments {
		n := byCanonical[as.CanonicalID]
		renumbered := n.SeasonNumber != as.Season || n.EpisodeNumber != as.Episode
		if renumbered {
			n.SeasonNumber = as.Season
			n.EpisodeNumber = as.Episode
			if _, err := a.store.Upsert(ctx, n); err != nil {
				return changed, fmt.Errorf("reindex: update note %s: %w", n.CanonicalID, err)
			}
			changed++
		}

		if a.media == nil {
			continue
		}
		path, ok := a.media.HasAsset(n, assets)
		if !ok {
			continue
		}
		// Sidecars are rewritten on renumbering and recreated when they
		// have gone missing, even if the numbering is already correct.
		if !renumbered && media.NFOExists(path) {
			continue
		}
		if err := a.media.WriteEpisodeNFO(path, episodeFor(n, as)); err != nil {
			a.logger.Warn("failed to rewrite episode sidecar",
				"canonical_id", n.CanonicalID, "error", err)
		}
	}

	a.logger.Info("reindexed series",
		"series_key", seriesKey, "notes", len(cached), "changed", changed)
	return changed, nil
}

// episodeFor maps a note plus its assignment onto sidecar fields.
func episodeFor(n models.Note, as Assignment) media.Episode {
	runtime := 0
	if secs, err := strconv.Atoi(n.Meta("duration")); err == nil {
		runtime = secs / 60
	}
	return media.Episode{
		VideoID: n.CanonicalID,
		Title:   n.Meta("title"),
		Show:    n.SeriesKey,
		Season:  as.Season,
		Episode: as.Episode,
		Aired:   n.Meta("published"),
		Plot:    n.Meta("description"),
		Runtime: runtime,
		Thumb:   n.Meta("thumbnail"),
		Channel: n.SeriesKey,
		ShowID:  n.Meta("channel_id"),
		URL:     n.Meta("url"),
	}
}
