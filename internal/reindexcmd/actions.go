// Package reindexcmd implements the reindex command: renumber cached
// series episodes chronologically.
package reindexcmd

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func Action(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reindex: %v", err), 2)
	}
	defer app.Close()

	ctx := c.Context
	var keys []string
	switch {
	case c.Bool("all"):
		keys, err = cachedSeriesKeys(c, app)
		if err != nil {
			return cli.Exit(fmt.Sprintf("reindex: %v", err), 2)
		}
	case c.NArg() > 0:
		keys = c.Args().Slice()
	default:
		return cli.Exit("reindex: give series keys or --all", 2)
	}

	failed := 0
	for _, key := range keys {
		changed, err := app.Reindexer.Reindex(ctx, key)
		if err != nil {
			app.Logger.Error("series reindex failed", "series_key", key, "error", err)
			failed++
			continue
		}
		fmt.Printf("{\"series_key\": %q, \"changed\": %d}\n", key, changed)
	}

	switch {
	case failed == 0:
		return nil
	case failed < len(keys):
		return cli.Exit("", 1)
	default:
		return cli.Exit("", 2)
	}
}

// cachedSeriesKeys collects every series that has cached notes.
func cachedSeriesKeys(c *cli.Context, app *common.App) ([]string, error) {
	notes, err := app.Store.List(c.Context, store.Filter{State: models.StateCached})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, n := range notes {
		if n.SeriesKey != "" {
			seen[n.SeriesKey] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
