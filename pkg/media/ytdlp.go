package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/dtnitsch/capturemd/pkg/apperr"
)

// YtDlp wraps the yt-dlp binary for metadata dumps and downloads.
type YtDlp struct {
	bin    string
	logger *slog.Logger
}

func NewYtDlp(logger *slog.Logger) *YtDlp {
	return &YtDlp{bin: "yt-dlp", logger: logger}
}

// VideoInfo is the slice of yt-dlp's --dump-json output the pipeline
// cares about.
type VideoInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	UploadDate string `json:"upload_date"` // YYYYMMDD
	Channel    string `json:"channel"`
	ChannelID  string `json:"channel_id"`
	ChannelURL string `json:"channel_url"`
	Thumbnail  string `json:"thumbnail"`
	Uploader   string `json:"uploader"`
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// DumpInfo fetches video metadata without downloading anything.
func (y *YtDlp) DumpInfo(ctx context.Context, videoID string) (VideoInfo, error) {
	out, err := y.run(ctx, WatchURL(videoID), "--dump-json", "--no-playlist")
	if err != nil {
		return VideoInfo{}, err
	}

	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return VideoInfo{}, fmt.Errorf("yt-dlp: decode metadata for %s: %w", videoID, err)
	}
	if info.Channel == "" {
		info.Channel = info.Uploader
	}
	return info, nil
}

// subtitleArgs are dropped on the retry: some videos fail only because
// their subtitle tracks cannot be converted.
var subtitleArgs = []string{
	"--write-auto-subs", "--write-subs", "--sub-langs", "en.*",
	"--embed-subs", "--convert-subs", "srt",
}

// DownloadVideo fetches a video capped at 720p into an mp4 at outPath,
// with embedded metadata, chapters, and english subtitles when they
// convert. A failed download is retried once without subtitles.
func (y *YtDlp) DownloadVideo(ctx context.Context, videoID, outPath string) error {
	base := []string{
		WatchURL(videoID),
		"-o", outPath,
		"--format", "bestvideo[height<=720]+bestaudio/best[height<=720]",
		"--merge-output-format", "mp4",
		"--add-metadata",
		"--embed-chapters",
		"--no-playlist",
	}

	_, err := y.run(ctx, append(append([]string{}, base...), subtitleArgs...)...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	y.logger.Warn("video download failed, retrying without subtitles",
		"video_id", videoID, "error", err)
	if _, err := y.run(ctx, base...); err != nil {
		return err
	}
	return nil
}

// DownloadAudio extracts a podcast episode as mp3 with embedded metadata
// and thumbnail.
func (y *YtDlp) DownloadAudio(ctx context.Context, audioURL, outTemplate string) error {
	_, err := y.run(ctx,
		audioURL,
		"-o", outTemplate,
		"--extract-audio",
		"--audio-format", "mp3",
		"--add-metadata",
		"--embed-thumbnail",
		"--no-playlist",
	)
	return err
}

// run executes yt-dlp, mapping failures onto the download error kind and
// logging the stderr tail for diagnosis.
func (y *YtDlp) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, y.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		y.logger.Error("yt-dlp failed",
			"args", strings.Join(args, " "),
			"stderr", tail(stderr.String(), 500),
			"error", err)
		return nil, apperr.Wrap(apperr.ErrDownloadFailed, "yt-dlp "+args[0], err)
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
