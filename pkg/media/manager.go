// Package media manages the local media cache: the on-disk layout for
// cached videos and podcast audio, the yt-dlp runner that fills it, NFO
// sidecars for media libraries, and the reconcile plan that compares the
// note store against what is actually on disk.
package media

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/capturemd/models"
)

// videoExtensions are what a finished video download can end up as.
var videoExtensions = map[string]bool{".mp4": true, ".mkv": true, ".webm": true}

// audioExtensions are what a finished podcast download can end up as.
var audioExtensions = map[string]bool{".mp3": true, ".m4a": true}

// Manager owns the media cache layout:
//
//	<videoDir>/<channel>/<year>/<video id>.mp4  (+ .nfo, tvshow.nfo per channel)
//	<podcastDir>/<channel>/<note id>.mp3
type Manager struct {
	videoDir   string
	podcastDir string
	logger     *slog.Logger
}

func NewManager(videoDir, podcastDir string, logger *slog.Logger) *Manager {
	return &Manager{
		videoDir:   videoDir,
		podcastDir: podcastDir,
		logger:     logger,
	}
}

func (m *Manager) VideoDir() string   { return m.videoDir }
func (m *Manager) PodcastDir() string { return m.podcastDir }

// SafeName makes a channel/show name usable as a directory name.
func SafeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "?", "_", "*", "_",
		":", "_", "\"", "_", "<", "_", ">", "_",
	)
	safe := strings.TrimSpace(replacer.Replace(name))
	if safe == "" {
		safe = "unknown"
	}
	return safe
}

// VideoPath is where a note's video asset belongs given its current
// metadata: channel from the series key, season directory from the
// publication year.
func (m *Manager) VideoPath(n models.Note) string {
	year := seasonYear(n)
	return filepath.Join(m.videoDir, SafeName(n.SeriesKey), fmt.Sprintf("%d", year), n.CanonicalID+".mp4")
}

// PodcastPath is where a podcast note's audio belongs.
func (m *Manager) PodcastPath(n models.Note) string {
	return filepath.Join(m.podcastDir, SafeName(n.SeriesKey), n.ID+".mp3")
}

// seasonYear picks the year a note files under: publication year when
// known, the already-assigned season otherwise, the current year as the
// last resort.
func seasonYear(n models.Note) int {
	if t, ok := n.PublishedAt(); ok {
		return t.Year()
	}
	if n.SeasonNumber > 0 {
		return n.SeasonNumber
	}
	return time.Now().Year()
}

// CachedVideos scans the video cache and returns video id -> asset path.
func (m *Manager) CachedVideos() (map[string]string, error) {
	return m.scan(m.videoDir, videoExtensions)
}

// CachedPodcasts scans the podcast cache and returns note id -> asset path.
func (m *Manager) CachedPodcasts() (map[string]string, error) {
	return m.scan(m.podcastDir, audioExtensions)
}

func (m *Manager) scan(root string, exts map[string]bool) (map[string]string, error) {
	assets := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if !exts[ext] {
			return nil
		}
		id := strings.TrimSuffix(filepath.Base(path), ext)
		assets[id] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("media: scan %s: %w", root, err)
	}
	return assets, nil
}

// HasAsset reports whether a note's asset is on disk, trying the note's
// recorded media ref first and the scan second.
func (m *Manager) HasAsset(n models.Note, cached map[string]string) (string, bool) {
	if n.MediaRef != "" {
		if _, err := os.Stat(n.MediaRef); err == nil {
			return n.MediaRef, true
		}
	}
	key := n.CanonicalID
	if n.Platform == models.PlatformPodcast {
		key = n.ID
	}
	path, ok := cached[key]
	return path, ok
}

// DeleteAsset removes a cached file and its NFO sidecar.
func (m *Manager) DeleteAsset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("media: delete %s: %w", path, err)
	}
	nfo := nfoPathFor(path)
	if err := os.Remove(nfo); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("media: delete %s: %w", nfo, err)
	}
	m.logger.Info("deleted cached asset", "path", path)
	return nil
}

// nfoPathFor swaps a media file extension for .nfo.
func nfoPathFor(assetPath string) string {
	ext := filepath.Ext(assetPath)
	return strings.TrimSuffix(assetPath, ext) + ".nfo"
}
