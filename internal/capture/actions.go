// Package capture implements the capture command: turn references into
// notes, optionally parsing and caching them in the same run.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
)

func Action(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("capture: %v", err), 2)
	}
	defer app.Close()

	if c.Bool("podcast") {
		return podcastAction(c, app)
	}

	if c.NArg() == 0 {
		return cli.Exit("capture: no references given", 2)
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "capture"}
	sessionID, err := app.Ledger.StartSession("capture")
	if err != nil {
		app.Logger.Warn("session not recorded", "error", err)
	}

	ctx := c.Context
	for _, raw := range c.Args().Slice() {
		summary.Add(captureOne(ctx, app, raw, c.StringSlice("tag"), c.Bool("parse"), c.Bool("cache")))
	}

	summary.Finish(time.Since(start).Seconds())
	if sessionID != 0 {
		if err := app.Ledger.FinishSession(sessionID, summary.Stats.Succeeded, summary.Stats.Failed, summary.Stats.Skipped); err != nil {
			app.Logger.Warn("session not finished", "error", err)
		}
	}
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}

// captureOne runs the capture pipeline for a single reference. An
// unclassifiable reference fails without writing anything; everything
// after classification is recorded on a note.
func captureOne(ctx context.Context, app *common.App, raw string, tags []string, parse, cache bool) models.ItemResult {
	ref, err := app.Classifier.Classify(common.SanitizeReference(raw))
	if err != nil {
		return models.ItemResult{
			CanonicalID: raw,
			Status:      "failed",
			FailureKind: "InvalidReference",
			Error:       err.Error(),
		}
	}

	n := models.NewNote(ref.Platform, ref.CanonicalID)
	for k, v := range ref.Meta {
		n.SetMeta(k, v)
	}
	n.AddTags(tags...)

	n, err = app.Store.Upsert(ctx, n)
	if err != nil {
		return common.FailureResult(n, err)
	}

	// Caching implies parsing: a bare note has no series or media
	// metadata to cache against.
	if parse || cache {
		n, err = app.Dispatcher.Parse(ctx, n)
		if err != nil {
			return common.FailureResult(n, err)
		}
	}
	if cache && n.Platform.Cacheable() {
		n, err = app.Dispatcher.Cache(ctx, n)
		if err != nil {
			return common.FailureResult(n, err)
		}
		app.ReindexSeries(ctx, n)
	}

	return common.SuccessResult(n)
}

// podcastAction creates a podcast note from explicit flags instead of a
// classified reference.
func podcastAction(c *cli.Context, app *common.App) error {
	seed := models.PodcastSeed{
		Title:       c.String("title"),
		Channel:     c.String("channel"),
		Description: c.String("description"),
		PublishedAt: c.String("published"),
		AudioURL:    c.String("audio-url"),
		Duration:    c.String("duration"),
	}
	if seed.AudioURL == "" || seed.Channel == "" {
		return cli.Exit("capture: podcast notes need --audio-url and --channel", 2)
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "capture"}
	ctx := c.Context

	n := models.NewPodcastNote(seed)
	n.AddTags(c.StringSlice("tag")...)
	n, err := app.Store.Upsert(ctx, n)
	if err != nil {
		summary.Add(common.FailureResult(n, err))
	} else if c.Bool("cache") {
		n, err = app.Dispatcher.Cache(ctx, n)
		if err != nil {
			summary.Add(common.FailureResult(n, err))
		} else {
			app.ReindexSeries(ctx, n)
			summary.Add(common.SuccessResult(n))
		}
	} else {
		summary.Add(common.SuccessResult(n))
	}

	summary.Finish(time.Since(start).Seconds())
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}
