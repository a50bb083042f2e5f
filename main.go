package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/internal/admin"
	"github.com/dtnitsch/capturemd/internal/cache"
	"github.com/dtnitsch/capturemd/internal/capture"
	"github.com/dtnitsch/capturemd/internal/notes"
	"github.com/dtnitsch/capturemd/internal/parse"
	"github.com/dtnitsch/capturemd/internal/reindexcmd"
	"github.com/dtnitsch/capturemd/internal/syncsrc"
	"github.com/dtnitsch/capturemd/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "capturemd",
		Usage: "Capture web references as markdown notes with cached media",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: ~/.config/capturemd/config.yaml)",
				EnvVars: []string{"CAPTUREMD_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Only log errors",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Override the configured worker count",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "capture",
				Usage:     "Create notes from references (URLs or platform ids)",
				ArgsUsage: "<reference>...",
				Action:    capture.Action,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "parse", Usage: "Fetch metadata immediately"},
					&cli.BoolFlag{Name: "cache", Usage: "Download media immediately (implies --parse)"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Extra tags for the new notes"},
					&cli.BoolFlag{Name: "terse", Usage: "One JSON line per note"},
					&cli.BoolFlag{Name: "podcast", Usage: "Create a podcast note from flags instead of a reference"},
					&cli.StringFlag{Name: "title", Usage: "Podcast episode title"},
					&cli.StringFlag{Name: "channel", Usage: "Podcast show name"},
					&cli.StringFlag{Name: "audio-url", Usage: "Podcast audio URL"},
					&cli.StringFlag{Name: "description", Usage: "Podcast episode description"},
					&cli.StringFlag{Name: "published", Usage: "Podcast publish date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "duration", Usage: "Podcast duration in seconds"},
				},
			},
			{
				Name:      "parse",
				Usage:     "Fetch metadata for bare notes",
				ArgsUsage: "[<reference>...]",
				Action:    parse.Action,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Parse every bare note (the default when no references are given)"},
					&cli.BoolFlag{Name: "terse", Usage: "One JSON line per note"},
				},
			},
			{
				Name:      "sync",
				Usage:     "Pull remote inbox sources into the notes tree",
				ArgsUsage: "[wallabag|freshrss]",
				Action:    syncsrc.Action,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Sync every configured source"},
					&cli.BoolFlag{Name: "terse", Usage: "One JSON line per entry"},
				},
			},
			{
				Name:      "cache",
				Usage:     "Download media for notes",
				ArgsUsage: "<reference>...",
				Action:    cache.Action,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "terse", Usage: "One JSON line per note"},
				},
				Subcommands: []*cli.Command{
					{
						Name:      "reconcile",
						Usage:     "Bring a platform's media cache in line with the notes",
						ArgsUsage: "<youtube|podcast>",
						Action:    cache.ReconcileAction,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "dry-run", Usage: "Print the plan without executing it"},
							&cli.BoolFlag{Name: "terse", Usage: "One JSON line per note"},
						},
					},
				},
			},
			{
				Name:      "reindex",
				Usage:     "Renumber cached series episodes chronologically",
				ArgsUsage: "[<series-key>...]",
				Action:    reindexcmd.Action,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Reindex every cached series"},
				},
			},
			{
				Name:      "retry",
				Usage:     "Return failed or cached notes to the bare state",
				ArgsUsage: "<reference>...",
				Action:    notes.RetryAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "terse", Usage: "One JSON line per note"},
				},
			},
			{
				Name:   "list",
				Usage:  "List notes",
				Action: notes.ListAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Usage: "Filter expression, e.g. \"platform:youtube,state:cached\""},
					&cli.BoolFlag{Name: "json", Usage: "Force JSON output"},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show note counts and recent batch runs",
				Action: notes.StatsAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Force JSON output"},
				},
			},
			{
				Name:  "admin",
				Usage: "Ledger maintenance",
				Subcommands: []*cli.Command{
					{Name: "init", Usage: "Initialize the ledger schema", Action: admin.InitAction},
					{Name: "backup", Usage: "Write a consistent ledger copy", ArgsUsage: "<dest>", Action: admin.BackupAction},
					{Name: "verify", Usage: "Run the ledger integrity check", Action: admin.VerifyAction},
				},
			},
			{
				Name:  "coldstart",
				Usage: "Print the quick-start reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
