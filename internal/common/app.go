// Package common wires the shared pieces every command needs: config,
// logger, ledger, store, classifier, and the per-platform contract
// registry.
package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/caching"
	"github.com/dtnitsch/capturemd/pkg/classify"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
	"github.com/dtnitsch/capturemd/pkg/fetchers"
	"github.com/dtnitsch/capturemd/pkg/ledger"
	"github.com/dtnitsch/capturemd/pkg/media"
	"github.com/dtnitsch/capturemd/pkg/platform"
	"github.com/dtnitsch/capturemd/pkg/reindex"
	"github.com/dtnitsch/capturemd/pkg/sources"
	"github.com/dtnitsch/capturemd/pkg/store"
)

// NewLogger builds the JSON logger all commands share. Logs go to
// stderr so stdout stays clean for structured output.
func NewLogger(quiet, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// App is the assembled pipeline.
type App struct {
	Config     *models.Config
	Logger     *slog.Logger
	Ledger     *ledger.Ledger
	Store      store.Store
	Classifier *classify.Classifier
	Registry   *platform.Registry
	Dispatcher *platform.Dispatcher
	Media      *media.Manager
	Reindexer  *reindex.Applier
	Wallabag   *sources.Wallabag
	FreshRSS   *sources.FreshRSS
}

// Bootstrap builds the app from CLI flags. Everything downstream of
// config validation is constructed here so commands stay thin.
func Bootstrap(c *cli.Context) (*App, error) {
	logger := NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}

	led, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}

	fs, err := store.NewFS(cfg.NotesRoot(), led)
	if err != nil {
		led.Close()
		return nil, err
	}

	var cache *caching.Cache
	if cfg.CacheTTLMins > 0 {
		cache, err = caching.NewCache(
			filepath.Join(os.TempDir(), "capturemd-http-cache"),
			time.Duration(cfg.CacheTTLMins)*time.Minute)
		if err != nil {
			logger.Warn("http cache disabled", "error", err)
			cache = nil
		}
	}
	client := fetcher.New(time.Duration(cfg.FetchTimeoutSecs)*time.Second, cache)

	ytdlp := media.NewYtDlp(logger)
	manager := media.NewManager(cfg.VideoCacheDir(), cfg.PodcastCacheDir(), logger)

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Ledger:     led,
		Store:      fs,
		Classifier: classify.New(cfg.Sources.Wallabag.Host),
		Media:      manager,
		Reindexer:  reindex.NewApplier(fs, manager, cfg.NotesRoot(), logger),
	}
	if cfg.Sources.Wallabag.Enabled() {
		app.Wallabag = sources.NewWallabag(cfg.Sources.Wallabag)
	}
	if cfg.Sources.FreshRSS.Enabled() {
		app.FreshRSS = sources.NewFreshRSS(cfg.Sources.FreshRSS)
	}

	app.Registry = buildRegistry(app, client, ytdlp)
	app.Dispatcher = platform.NewDispatcher(app.Registry, app.Store, logger)
	return app, nil
}

// buildRegistry binds every platform to its fetch and cache contracts.
func buildRegistry(app *App, client *fetcher.Client, ytdlp *media.YtDlp) *platform.Registry {
	r := platform.NewRegistry()

	web := fetchers.NewWeb(client)
	r.RegisterFetcher(models.PlatformYouTube, fetchers.NewYouTube(ytdlp))
	r.RegisterFetcher(models.PlatformGitHub, fetchers.NewGitHub(client))
	r.RegisterFetcher(models.PlatformReddit, fetchers.NewReddit(client))
	r.RegisterFetcher(models.PlatformHackerNews, fetchers.NewHackerNews(client))
	r.RegisterFetcher(models.PlatformSteam, fetchers.NewSteam(client))
	r.RegisterFetcher(models.PlatformGoogleSearch, fetchers.NewGoogleSearch(app.Config.BrowserNotesPath()))
	r.RegisterFetcher(models.PlatformGenericWeb, web)
	r.RegisterFetcher(models.PlatformFreshRSS, fetchers.NewFreshRSS(web))
	r.RegisterFetcher(models.PlatformPodcast, fetchers.NewPodcast())
	if app.Wallabag != nil {
		r.RegisterFetcher(models.PlatformWallabag, fetchers.NewWallabag(app.Wallabag))
	}

	r.RegisterCacher(models.PlatformYouTube, media.NewVideoCacher(app.Media, ytdlp))
	r.RegisterCacher(models.PlatformPodcast, media.NewPodcastCacher(app.Media, ytdlp))
	return r
}

// Source returns the named sync source, or all enabled ones for "".
func (a *App) Source(name string) ([]sources.Source, error) {
	var all []sources.Source
	if a.Wallabag != nil {
		all = append(all, a.Wallabag)
	}
	if a.FreshRSS != nil {
		all = append(all, a.FreshRSS)
	}
	if name == "" {
		if len(all) == 0 {
			return nil, fmt.Errorf("no sync sources configured")
		}
		return all, nil
	}
	for _, s := range all {
		if s.Name() == name {
			return []sources.Source{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown or unconfigured source %q", name)
}

// ReindexSeries renumbers a note's series after a cache event. A failed
// reindex is logged, not fatal: the asset is already on disk and the
// next reindex run will pick it up.
func (a *App) ReindexSeries(ctx context.Context, n models.Note) {
	if n.SeriesKey == "" {
		return
	}
	if _, err := a.Reindexer.Reindex(ctx, n.SeriesKey); err != nil {
		a.Logger.Warn("reindex after cache failed",
			"series_key", n.SeriesKey, "error", err)
	}
}

func (a *App) Close() {
	if a.Ledger != nil {
		a.Ledger.Close()
	}
}
