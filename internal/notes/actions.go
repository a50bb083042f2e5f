// Package notes implements the read-side commands: list, stats, and
// retry.
package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/store"
)

func ListAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list: %v", err), 2)
	}
	defer app.Close()

	filter, err := store.ParseFilter(c.String("filter"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("list: %v", err), 2)
	}
	notes, err := app.Store.List(c.Context, filter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list: %v", err), 2)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Platform != notes[j].Platform {
			return notes[i].Platform < notes[j].Platform
		}
		return notes[i].CanonicalID < notes[j].CanonicalID
	})

	if c.Bool("json") || !isatty.IsTerminal(os.Stdout.Fd()) {
		return printNotesJSON(notes)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Platform", "Canonical ID", "State", "Title", "Series", "S/E"})
	for _, n := range notes {
		se := ""
		if n.SeasonNumber > 0 {
			se = fmt.Sprintf("S%02dE%03d", n.SeasonNumber, n.EpisodeNumber)
		}
		t.AppendRow(table.Row{
			n.Platform,
			truncate(n.CanonicalID, 48),
			n.State,
			truncate(n.Meta("title"), 48),
			truncate(n.SeriesKey, 24),
			se,
		})
	}
	t.Render()
	fmt.Printf("%d notes\n", len(notes))
	return nil
}

type noteRow struct {
	NoteID      string          `json:"note_id"`
	CanonicalID string          `json:"canonical_id"`
	Platform    models.Platform `json:"platform"`
	State       models.State    `json:"state"`
	Title       string          `json:"title,omitempty"`
	SeriesKey   string          `json:"series_key,omitempty"`
	Season      int             `json:"season,omitempty"`
	Episode     int             `json:"episode,omitempty"`
	Path        string          `json:"path,omitempty"`
	FailureKind string          `json:"failure_kind,omitempty"`
}

func printNotesJSON(notes []models.Note) error {
	rows := make([]noteRow, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, noteRow{
			NoteID:      n.ID,
			CanonicalID: n.CanonicalID,
			Platform:    n.Platform,
			State:       n.State,
			Title:       n.Meta("title"),
			SeriesKey:   n.SeriesKey,
			Season:      n.SeasonNumber,
			Episode:     n.EpisodeNumber,
			Path:        n.Path,
			FailureKind: n.FailureKind,
		})
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("list: %v", err), 2)
	}
	fmt.Println(string(out))
	return nil
}

func StatsAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats: %v", err), 2)
	}
	defer app.Close()

	notes, err := app.Store.List(c.Context, store.Filter{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats: %v", err), 2)
	}

	byPlatform := map[models.Platform]int{}
	byState := map[models.State]int{}
	byFailure := map[string]int{}
	for _, n := range notes {
		byPlatform[n.Platform]++
		byState[n.State]++
		if n.State == models.StateFailed && n.FailureKind != "" {
			byFailure[n.FailureKind]++
		}
	}

	sessions, err := app.Ledger.RecentSessions(10)
	if err != nil {
		app.Logger.Warn("sessions unavailable", "error", err)
	}

	if c.Bool("json") || !isatty.IsTerminal(os.Stdout.Fd()) {
		out, err := json.MarshalIndent(map[string]any{
			"total":           len(notes),
			"by_platform":     byPlatform,
			"by_state":        byState,
			"by_failure":      byFailure,
			"recent_sessions": sessions,
		}, "", "  ")
		if err != nil {
			return cli.Exit(fmt.Sprintf("stats: %v", err), 2)
		}
		fmt.Println(string(out))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Platform", "Count"})
	for _, p := range models.AllPlatforms {
		if byPlatform[p] > 0 {
			t.AppendRow(table.Row{p, byPlatform[p]})
		}
	}
	t.AppendFooter(table.Row{"total", len(notes)})
	t.Render()

	st := table.NewWriter()
	st.SetOutputMirror(os.Stdout)
	st.AppendHeader(table.Row{"State", "Count"})
	for _, s := range []models.State{models.StateBare, models.StateParsed, models.StateCachingRequested, models.StateCached, models.StateFailed} {
		if byState[s] > 0 {
			st.AppendRow(table.Row{s, byState[s]})
		}
	}
	st.Render()

	if len(byFailure) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(os.Stdout)
		ft.AppendHeader(table.Row{"Failure Kind", "Count"})
		kinds := make([]string, 0, len(byFailure))
		for k := range byFailure {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			ft.AppendRow(table.Row{k, byFailure[k]})
		}
		ft.Render()
	}

	if len(sessions) > 0 {
		rt := table.NewWriter()
		rt.SetOutputMirror(os.Stdout)
		rt.AppendHeader(table.Row{"Session", "Command", "Started", "OK", "Failed", "Skipped"})
		for _, s := range sessions {
			rt.AppendRow(table.Row{s.SessionID, s.Command, s.StartedAt.Format(time.DateTime), s.Succeeded, s.Failed, s.Skipped})
		}
		rt.Render()
	}
	return nil
}

// RetryAction returns failed (or cached) notes to Bare so the next
// parse picks them up again.
func RetryAction(c *cli.Context) error {
	app, err := common.Bootstrap(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("retry: %v", err), 2)
	}
	defer app.Close()

	if c.NArg() == 0 {
		return cli.Exit("retry: give references", 2)
	}

	start := time.Now()
	summary := &models.BatchSummary{Command: "retry"}
	ctx := c.Context

	for _, raw := range c.Args().Slice() {
		ref, err := app.Classifier.Classify(common.SanitizeReference(raw))
		if err != nil {
			summary.Add(models.ItemResult{
				CanonicalID: raw,
				Status:      "failed",
				FailureKind: "InvalidReference",
				Error:       err.Error(),
			})
			continue
		}
		n, err := app.Store.Get(ctx, ref.CanonicalID)
		if err != nil {
			summary.Add(models.ItemResult{
				CanonicalID: ref.CanonicalID,
				Platform:    ref.Platform,
				Status:      "failed",
				FailureKind: "NotFound",
				Error:       err.Error(),
			})
			continue
		}
		if err := n.Retry(); err != nil {
			summary.Add(common.FailureResult(n, err))
			continue
		}
		if n, err = app.Store.Upsert(ctx, n); err != nil {
			summary.Add(common.FailureResult(n, err))
			continue
		}
		summary.Add(common.SuccessResult(n))
	}

	summary.Finish(time.Since(start).Seconds())
	return cli.Exit("", common.EmitSummary(summary, c.Bool("terse")))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
