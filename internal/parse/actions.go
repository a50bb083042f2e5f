// Package parse implements the parse command: fetch metadata for bare
// notes through a worker pool.
package parse

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func Action(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("parse: %v", err), 2)
	}
	defer app.Close()

	ctx := c.Context
	var notes []models.Note

	if c.NArg() > 0 {
		for _, raw := range c.Args().Slice() {
			ref, err := app.Classifier.Classify(common.SanitizeReference(raw))
			if err != nil {
				return cli.Exit(fmt.Sprintf("parse: %v", err), 2)
			}
			n, err := app.Store.Get(ctx, ref.CanonicalID)
			if err != nil {
				return cli.Exit(fmt.Sprintf("parse: %s: %v", raw, err), 2)
			}
			notes = append(notes, n)
		}
	} else {
		notes, err = app.Store.List(ctx, store.Filter{State: models.StateBare})
		if err != nil {
			return cli.Exit(fmt.Sprintf("parse: %v", err), 2)
		}
	}

	if len(notes) == 0 {
		fmt.Println(`{"command":"parse","status":"success","results":[],"stats":{"total":0}}`)
		return nil
	}

	start := time.Now()
	sessionID, err := app.Ledger.StartSession("parse")
	if err != nil {
		app.Logger.Warn("session not recorded", "error", err)
	}

	summary := Run(ctx, app, notes, app.Config.Workers)
	summary.Finish(time.Since(start).Seconds())

	if sessionID != 0 {
		if err := app.Ledger.FinishSession(sessionID, summary.Stats.Succeeded, summary.Stats.Failed, summary.Stats.Skipped); err != nil {
			app.Logger.Warn("session not finished", "error", err)
		}
	}
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}
