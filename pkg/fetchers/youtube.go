// Package fetchers implements the per-platform metadata fetch contract.
// Each fetcher turns a note's canonical id into frontmatter metadata;
// the dispatcher applies the result and advances the lifecycle.
package fetchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/media"
)

// YouTube fetches video metadata through yt-dlp's JSON dump. No API key
// needed, and the fields line up with what the downloader sees later.
type YouTube struct {
	ytdlp *media.YtDlp
}

func NewYouTube(y *media.YtDlp) *YouTube {
	return &YouTube{ytdlp: y}
}

func (f *YouTube) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	info, err := f.ytdlp.DumpInfo(ctx, n.CanonicalID)
	if err != nil {
		// A metadata dump that fails is a fetch problem, not a download
		// problem: keep the note retriable as a network failure.
		if errors.Is(err, apperr.ErrDownloadFailed) {
			return models.Metadata{}, apperr.Wrap(apperr.ErrNetwork, "youtube: dump "+n.CanonicalID, err)
		}
		return models.Metadata{}, err
	}

	meta := models.Metadata{
		Title:     info.Title,
		Author:    info.Channel,
		SeriesKey: info.Channel,
		SourceURL: media.WatchURL(n.CanonicalID),
		Extra: map[string]string{
			"channel": info.Channel,
		},
	}
	if info.Duration > 0 {
		meta.Extra["duration"] = fmt.Sprint(info.Duration)
	}
	if info.ChannelID != "" {
		meta.Extra["channel_id"] = info.ChannelID
		meta.Extra["channel_feed"] = "https://www.youtube.com/feeds/videos.xml?channel_id=" + info.ChannelID
	}
	if t, err := time.Parse("20060102", info.UploadDate); err == nil {
		meta.PublishedAt = t.Format("2006-01-02")
	}
	if info.Thumbnail != "" {
		meta.Body = fmt.Sprintf("\n![thumbnail](%s)\n", info.Thumbnail)
	}
	return meta, nil
}
