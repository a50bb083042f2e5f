// Package syncsrc implements the sync command: reconcile remote inbox
// sources (wallabag, freshrss) into the notes tree.
package syncsrc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/sources"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func Action(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sync: %v", err), 2)
	}
	defer app.Close()

	name := ""
	if !c.Bool("all") {
		if c.NArg() != 1 {
			return cli.Exit("sync: give a source name or --all", 2)
		}
		name = c.Args().First()
	}
	srcs, err := app.Source(name)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sync: %v", err), 2)
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "sync"}
	sessionID, err := app.Ledger.StartSession("sync")
	if err != nil {
		app.Logger.Warn("session not recorded", "error", err)
	}

	// Sources are independent; pull and reconcile them concurrently.
	// The shared summary is the only contention point.
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(c.Context)
	for _, src := range srcs {
		src := src
		g.Go(func() error {
			results := syncSource(ctx, app, src)
			mu.Lock()
			for _, r := range results {
				summary.Add(r)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cli.Exit(fmt.Sprintf("sync: %v", err), 2)
	}

	summary.Finish(time.Since(start).Seconds())
	if sessionID != 0 {
		if err := app.Ledger.FinishSession(sessionID, summary.Stats.Succeeded, summary.Stats.Failed, summary.Stats.Skipped); err != nil {
			app.Logger.Warn("session not finished", "error", err)
		}
	}
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}

// syncSource reconciles one source. A failed pull fails the whole
// source; per-entry failures are isolated so one bad entry never stalls
// the rest of the queue.
func syncSource(ctx context.Context, app *common.App, src sources.Source) []models.ItemResult {
	entries, err := src.Pull(ctx)
	if err != nil {
		app.Logger.Error("source pull failed", "source", src.Name(), "error", err)
		return []models.ItemResult{{
			CanonicalID: src.Name(),
			Status:      "failed",
			Error:       err.Error(),
		}}
	}
	app.Logger.Info("pulled source entries", "source", src.Name(), "count", len(entries))

	action := sourceAction(app.Config, src.Name())
	var results []models.ItemResult
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		results = append(results, syncEntry(ctx, app, src, entry, action))
	}

	if src.Name() == "wallabag" && app.Wallabag != nil {
		results = append(results, pushBookmarks(ctx, app)...)
	}
	return results
}

// syncEntry runs one remote entry through capture and parse. The ledger
// remembers resolved entries, so a crashed sync resumes without
// re-creating notes or re-tagging the remote side.
func syncEntry(ctx context.Context, app *common.App, src sources.Source, entry models.RemoteInboxEntry, action models.SourceAction) models.ItemResult {
	if err := app.Ledger.UpsertInboxEntry(entry.Source, entry.RemoteID, entry.Reference); err != nil {
		app.Logger.Warn("inbox entry not recorded", "remote_id", entry.RemoteID, "error", err)
	}
	if resolved, err := app.Ledger.IsResolved(entry.Source, entry.RemoteID); err == nil && resolved {
		return models.ItemResult{
			CanonicalID: entry.Reference,
			Status:      "skipped",
		}
	}

	n, err := noteFromEntry(app, entry)
	if err != nil {
		return models.ItemResult{
			CanonicalID: entry.Reference,
			Status:      "failed",
			FailureKind: "InvalidReference",
			Error:       err.Error(),
		}
	}

	n, err = app.Store.Upsert(ctx, n)
	if err != nil {
		return common.FailureResult(n, err)
	}
	// A note left Failed by an earlier run goes back through Bare so this
	// sync attempts the capture again instead of silently releasing the
	// remote entry.
	if n.State == models.StateFailed {
		if err := n.Retry(); err != nil {
			return common.FailureResult(n, err)
		}
		if n, err = app.Store.Upsert(ctx, n); err != nil {
			return common.FailureResult(n, err)
		}
	}
	if n.State == models.StateBare {
		n, err = app.Dispatcher.Parse(ctx, n)
		if err != nil {
			return common.FailureResult(n, err)
		}
	}
	// Only a confirmed capture (at least Parsed) releases the entry; a
	// failed one stays in the remote inbox for the next pull.
	if n.State == models.StateBare || n.State == models.StateFailed {
		return common.FailureResult(n, fmt.Errorf("capture of %s did not complete", n.CanonicalID))
	}

	if err := app.Ledger.MarkResolved(entry.Source, entry.RemoteID); err != nil {
		app.Logger.Warn("inbox entry not resolved", "remote_id", entry.RemoteID, "error", err)
	}
	if err := src.MarkProcessed(ctx, entry.RemoteID, action); err != nil {
		// The note exists; the remote tag is best effort and the ledger
		// keeps the entry from being captured twice.
		app.Logger.Warn("remote entry not marked",
			"source", entry.Source, "remote_id", entry.RemoteID, "error", err)
	}
	return common.SuccessResult(n)
}

// noteFromEntry builds the note a remote entry describes.
func noteFromEntry(app *common.App, entry models.RemoteInboxEntry) (models.Note, error) {
	if entry.Podcast != nil {
		n := models.NewPodcastNote(*entry.Podcast)
		n.AddTags(entry.Tags...)
		return n, nil
	}

	ref, err := app.Classifier.Classify(common.SanitizeReference(entry.Reference))
	if err != nil {
		return models.Note{}, err
	}
	n := models.NewNote(ref.Platform, ref.CanonicalID)
	for k, v := range ref.Meta {
		n.SetMeta(k, v)
	}
	if entry.Title != "" {
		n.SetMeta("title", entry.Title)
	}
	if entry.PublishedAt != "" {
		n.SetMeta("published", entry.PublishedAt)
	}
	n.AddTags(entry.Tags...)
	if entry.CacheRequested && n.Platform.Cacheable() {
		n.CacheRequested = true
	}
	return n, nil
}

// pushBookmarks mirrors locally captured bookmarks back into wallabag
// so the read-it-later queue sees them too.
func pushBookmarks(ctx context.Context, app *common.App) []models.ItemResult {
	notes, err := app.Store.List(ctx, store.Filter{Platform: models.PlatformGenericWeb})
	if err != nil {
		app.Logger.Warn("bookmark push skipped", "error", err)
		return nil
	}

	var results []models.ItemResult
	for _, n := range notes {
		if n.Meta("wallabag_id") != "" {
			continue
		}
		pageURL := n.Meta("url")
		if pageURL == "" {
			pageURL = n.CanonicalID
		}

		id, err := app.Wallabag.Exists(ctx, pageURL)
		if err != nil {
			results = append(results, common.FailureResult(n, err))
			continue
		}
		if id == "" {
			id, err = app.Wallabag.Add(ctx, pageURL, n.Tags)
			if err != nil {
				results = append(results, common.FailureResult(n, err))
				continue
			}
		}

		n.SetMeta("wallabag_id", id)
		if n, err = app.Store.Upsert(ctx, n); err != nil {
			results = append(results, common.FailureResult(n, err))
			continue
		}
		results = append(results, common.SuccessResult(n))
	}
	return results
}

func sourceAction(cfg *models.Config, name string) models.SourceAction {
	switch name {
	case "wallabag":
		return models.SourceAction(cfg.Sources.Wallabag.Action)
	case "freshrss":
		return models.SourceAction(cfg.Sources.FreshRSS.Action)
	}
	return models.SourceActionKeep
}
