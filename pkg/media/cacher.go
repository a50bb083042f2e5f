package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

// VideoCacher downloads youtube notes into the video cache layout and
// drops the per-channel tvshow.nfo. Episode sidecars are the
// reindexer's job: it runs after every new cache event anyway.
type VideoCacher struct {
	manager *Manager
	ytdlp   *YtDlp
}

func NewVideoCacher(m *Manager, y *YtDlp) *VideoCacher {
	return &VideoCacher{manager: m, ytdlp: y}
}

func (c *VideoCacher) Cache(ctx context.Context, n models.Note) (models.MediaAsset, error) {
	if n.SeriesKey == "" {
		return models.MediaAsset{}, apperr.Wrap(apperr.ErrUnsupported,
			"cache video", fmt.Errorf("note %s has no channel", n.CanonicalID))
	}

	outPath := c.manager.VideoPath(n)
	channelDir := filepath.Dir(filepath.Dir(outPath))
	if err := c.manager.WriteShowNFO(channelDir, n.SeriesKey, n.Meta("channel_id")); err != nil {
		return models.MediaAsset{}, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return models.MediaAsset{}, fmt.Errorf("media: create season dir: %w", err)
	}

	if err := c.ytdlp.DownloadVideo(ctx, n.CanonicalID, outPath); err != nil {
		return models.MediaAsset{}, err
	}

	return models.MediaAsset{
		LocalPath: outPath,
		Duration:  metaSeconds(n),
		Format:    "mp4",
	}, nil
}

// PodcastCacher extracts podcast audio into the podcast cache layout.
type PodcastCacher struct {
	manager *Manager
	ytdlp   *YtDlp
}

func NewPodcastCacher(m *Manager, y *YtDlp) *PodcastCacher {
	return &PodcastCacher{manager: m, ytdlp: y}
}

func (c *PodcastCacher) Cache(ctx context.Context, n models.Note) (models.MediaAsset, error) {
	audioURL := n.Meta("audio_url")
	if audioURL == "" {
		audioURL = n.CanonicalID
	}
	if audioURL == "" {
		return models.MediaAsset{}, apperr.Wrap(apperr.ErrUnsupported,
			"cache podcast", fmt.Errorf("note %s has no audio url", n.ID))
	}

	outPath := c.manager.PodcastPath(n)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return models.MediaAsset{}, fmt.Errorf("media: create show dir: %w", err)
	}

	// yt-dlp picks the extension during extraction, so hand it a template.
	template := strings.TrimSuffix(outPath, ".mp3") + ".%(ext)s"
	if err := c.ytdlp.DownloadAudio(ctx, audioURL, template); err != nil {
		return models.MediaAsset{}, err
	}

	return models.MediaAsset{
		LocalPath: outPath,
		Duration:  metaSeconds(n),
		Format:    "mp3",
	}, nil
}

func metaSeconds(n models.Note) int {
	secs, err := strconv.Atoi(n.Meta("duration"))
	if err != nil {
		return 0
	}
	return secs
}
