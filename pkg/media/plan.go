package media

import (
	"sort"

	"github.com/dtnitsch/capturemd/models"
)

// Plan is a computed reconcile: what to download, what to delete, which
// sidecars to regenerate. Compute first, execute with per-item
// isolation.
type Plan struct {
	Download []models.Note // caching requested, asset missing on disk
	Delete   []string      // asset paths no note requests anymore
	RegenNFO []RegenItem   // asset present, sidecar missing
}

type RegenItem struct {
	Note      models.Note
	AssetPath string
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.Download) == 0 && len(p.Delete) == 0 && len(p.RegenNFO) == 0
}

// BuildVideoPlan reconciles youtube notes against the video cache.
// Notes wanting an asset are keyed by video id (the canonical id).
func (m *Manager) BuildVideoPlan(notes []models.Note) (Plan, error) {
	cached, err := m.CachedVideos()
	if err != nil {
		return Plan{}, err
	}
	return buildPlan(notes, cached, func(n models.Note) string { return n.CanonicalID }, true), nil
}

// BuildPodcastPlan reconciles podcast notes against the audio cache.
// Podcast assets are keyed by note id: audio URLs are not stable ids.
func (m *Manager) BuildPodcastPlan(notes []models.Note) (Plan, error) {
	cached, err := m.CachedPodcasts()
	if err != nil {
		return Plan{}, err
	}
	return buildPlan(notes, cached, func(n models.Note) string { return n.ID }, false), nil
}

func buildPlan(notes []models.Note, cached map[string]string, key func(models.Note) string, withNFO bool) Plan {
	want := map[string]models.Note{}
	for _, n := range notes {
		if n.CacheRequested {
			want[key(n)] = n
		}
	}

	var plan Plan
	for id, path := range cached {
		n, wanted := want[id]
		if !wanted {
			plan.Delete = append(plan.Delete, path)
			continue
		}
		if withNFO && !NFOExists(path) {
			plan.RegenNFO = append(plan.RegenNFO, RegenItem{Note: n, AssetPath: path})
		}
	}
	for id, n := range want {
		if _, ok := cached[id]; !ok {
			plan.Download = append(plan.Download, n)
		}
	}

	// Deterministic execution order.
	sort.Strings(plan.Delete)
	sort.Slice(plan.Download, func(i, j int) bool {
		return plan.Download[i].CanonicalID < plan.Download[j].CanonicalID
	})
	sort.Slice(plan.RegenNFO, func(i, j int) bool {
		return plan.RegenNFO[i].AssetPath < plan.RegenNFO[j].AssetPath
	})
	return plan
}
