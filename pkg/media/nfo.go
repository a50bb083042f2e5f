package media

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Episode holds everything an episode NFO sidecar needs. Season and
// Episode come from the reindexer, the rest from the note.
type Episode struct {
	VideoID  string
	Title    string
	Show     string
	Season   int
	Episode  int
	Aired    string // YYYY-MM-DD, empty when unknown
	Plot     string
	Runtime  int // minutes
	Thumb    string
	Channel  string
	ShowID   string
	URL      string
}

// WriteShowNFO creates the per-channel tvshow.nfo once. Existing files
// are left alone: media centers may have touched them.
func (m *Manager) WriteShowNFO(channelDir, channel, channelID string) error {
	path := filepath.Join(channelDir, "tvshow.nfo")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		return fmt.Errorf("media: create channel dir: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString("<tvshow>\n")
	writeTag(&sb, 1, "title", channel)
	writeTag(&sb, 1, "showtitle", channel)
	writeTag(&sb, 1, "plot", "YouTube channel: "+channel)
	writeTag(&sb, 1, "genre", "YouTube")
	writeTag(&sb, 1, "studio", "YouTube")
	writeTag(&sb, 1, "id", channelID)
	fmt.Fprintf(&sb, "  <uniqueid type=\"youtube\" default=\"true\">%s</uniqueid>\n", escape(channelID))
	sb.WriteString("</tvshow>\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("media: write %s: %w", path, err)
	}
	return nil
}

// WriteEpisodeNFO writes the sidecar next to the asset, replacing any
// previous version. The reindexer calls this after renumbering, so the
// file is always regenerated whole, never patched.
func (m *Manager) WriteEpisodeNFO(assetPath string, ep Episode) error {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString("<episodedetails>\n")
	writeTag(&sb, 1, "title", ep.Title)
	writeTag(&sb, 1, "showtitle", ep.Show)
	writeTag(&sb, 1, "season", fmt.Sprintf("%d", ep.Season))
	writeTag(&sb, 1, "episode", fmt.Sprintf("%d", ep.Episode))
	if ep.Aired != "" {
		writeTag(&sb, 1, "aired", ep.Aired)
		writeTag(&sb, 1, "premiered", ep.Aired)
	}
	writeTag(&sb, 1, "plot", ep.Plot)
	if ep.Runtime > 0 {
		writeTag(&sb, 1, "runtime", fmt.Sprintf("%d", ep.Runtime))
	}
	if ep.Thumb != "" {
		writeTag(&sb, 1, "thumb", ep.Thumb)
	}
	writeTag(&sb, 1, "id", ep.VideoID)
	fmt.Fprintf(&sb, "  <uniqueid type=\"youtube\" default=\"true\">%s</uniqueid>\n", escape(ep.VideoID))
	writeTag(&sb, 1, "studio", ep.Channel)
	writeTag(&sb, 1, "director", ep.Channel)
	writeTag(&sb, 1, "genre", "YouTube")
	writeTag(&sb, 1, "dateadded", time.Now().Format("2006-01-02 15:04:05"))
	if ep.URL != "" {
		writeTag(&sb, 1, "url", ep.URL)
	}
	sb.WriteString("</episodedetails>\n")

	path := nfoPathFor(assetPath)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("media: write %s: %w", path, err)
	}
	return nil
}

// NFOExists reports whether an asset already has its sidecar.
func NFOExists(assetPath string) bool {
	_, err := os.Stat(nfoPathFor(assetPath))
	return err == nil
}

func writeTag(sb *strings.Builder, indent int, tag, value string) {
	fmt.Fprintf(sb, "%s<%s>%s</%s>\n", strings.Repeat("  ", indent), tag, escape(value), tag)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
