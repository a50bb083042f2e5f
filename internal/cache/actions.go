// Package cache implements the cache command: download media for single
// notes and reconcile whole platform caches against the notes tree.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/media"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func Action(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cache: %v", err), 2)
	}
	defer app.Close()

	if c.NArg() == 0 {
		return cli.Exit("cache: give references", 2)
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "cache"}
	sessionID, err := app.Ledger.StartSession("cache")
	if err != nil {
		app.Logger.Warn("session not recorded", "error", err)
	}

	ctx := c.Context
	for _, raw := range c.Args().Slice() {
		summary.Add(cacheOne(ctx, app, raw))
	}

	summary.Finish(time.Since(start).Seconds())
	if sessionID != 0 {
		if err := app.Ledger.FinishSession(sessionID, summary.Stats.Succeeded, summary.Stats.Failed, summary.Stats.Skipped); err != nil {
			app.Logger.Warn("session not finished", "error", err)
		}
	}
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}

func cacheOne(ctx context.Context, app *common.App, raw string) models.ItemResult {
	ref, err := app.Classifier.Classify(common.SanitizeReference(raw))
	if err != nil {
		return models.ItemResult{
			CanonicalID: raw,
			Status:      "failed",
			FailureKind: "InvalidReference",
			Error:       err.Error(),
		}
	}
	n, err := app.Store.Get(ctx, ref.CanonicalID)
	if err != nil {
		return models.ItemResult{
			CanonicalID: ref.CanonicalID,
			Platform:    ref.Platform,
			Status:      "failed",
			FailureKind: "NotFound",
			Error:       err.Error(),
		}
	}

	_, onDisk := app.Media.HasAsset(n, nil)
	if n.State == models.StateCached && onDisk {
		return models.ItemResult{
			CanonicalID: n.CanonicalID,
			NoteID:      n.ID,
			Platform:    n.Platform,
			State:       n.State,
			Status:      "skipped",
		}
	}

	n, err = app.Dispatcher.Cache(ctx, n)
	if err != nil {
		return common.FailureResult(n, err)
	}
	app.ReindexSeries(ctx, n)
	return common.SuccessResult(n)
}

// ReconcileAction brings a platform's media cache in line with the
// notes tree: download what notes request, delete what nothing
// requests, and renumber the touched series.
func ReconcileAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cache reconcile: %v", err), 2)
	}
	defer app.Close()

	platformName := models.Platform(c.Args().First())
	if !platformName.Cacheable() {
		return cli.Exit("cache reconcile: platform must be youtube or podcast", 2)
	}

	ctx := c.Context
	notes, err := app.Store.List(ctx, store.Filter{Platform: platformName})
	if err != nil {
		return cli.Exit(fmt.Sprintf("cache reconcile: %v", err), 2)
	}

	var plan media.Plan
	if platformName == models.PlatformYouTube {
		plan, err = app.Media.BuildVideoPlan(notes)
	} else {
		plan, err = app.Media.BuildPodcastPlan(notes)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("cache reconcile: %v", err), 2)
	}

	if c.Bool("dry-run") {
		fmt.Printf("{\"download\": %d, \"delete\": %d, \"regen_nfo\": %d}\n",
			len(plan.Download), len(plan.Delete), len(plan.RegenNFO))
		return nil
	}
	if plan.Empty() {
		app.Logger.Info("cache already consistent", "platform", platformName)
		return nil
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "cache reconcile"}
	touched := map[string]bool{}

	for _, path := range plan.Delete {
		if err := app.Media.DeleteAsset(path); err != nil {
			app.Logger.Warn("orphaned asset not deleted", "path", path, "error", err)
		}
	}

	for _, n := range plan.Download {
		n, err := readyForDownload(ctx, app, n)
		if err != nil {
			summary.Add(common.FailureResult(n, err))
			continue
		}
		n, err = app.Dispatcher.Cache(ctx, n)
		if err != nil {
			summary.Add(common.FailureResult(n, err))
			continue
		}
		touched[n.SeriesKey] = true
		summary.Add(common.SuccessResult(n))
	}

	// RegenNFO items are series members whose sidecar vanished; the
	// reindex pass rewrites sidecars for the whole series anyway.
	for _, item := range plan.RegenNFO {
		touched[item.Note.SeriesKey] = true
	}
	for seriesKey := range touched {
		if seriesKey == "" {
			continue
		}
		if _, err := app.Reindexer.Reindex(ctx, seriesKey); err != nil {
			app.Logger.Warn("series reindex failed", "series_key", seriesKey, "error", err)
		}
	}

	summary.Finish(time.Since(start).Seconds())
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}

// readyForDownload puts a note into a state the cacher accepts. A note
// still marked Cached whose asset vanished goes back through Bare with
// its metadata intact.
func readyForDownload(ctx context.Context, app *common.App, n models.Note) (models.Note, error) {
	if n.State != models.StateCached {
		return n, nil
	}
	if err := n.Retry(); err != nil {
		return n, err
	}
	if err := n.MarkParsed(); err != nil {
		return n, err
	}
	n.CacheRequested = true
	return app.Store.Upsert(ctx, n)
}
