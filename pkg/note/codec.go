// Package note encodes and decodes the persisted markdown note format:
// a YAML metadata header between --- delimiters, then a free body.
//
// The codec owns the lifecycle fields and rewrites them on every save.
// Header entries it does not own are kept as raw lines and written back
// byte-for-byte, so hand-edited fields survive any number of re-parses.
package note

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/capturemd/models"
)

const delimiter = "---"

// coreKeys are the header fields the codec rewrites itself.
var coreKeys = map[string]bool{
	"id":              true,
	"canonical_id":    true,
	"platform":        true,
	"state":           true,
	"series_key":      true,
	"season_number":   true,
	"episode_number":  true,
	"tags":            true,
	"cache_requested": true,
	"media_ref":       true,
	"failure_kind":    true,
	"failure_message": true,
}

// header mirrors the core-owned YAML fields for decoding.
type header struct {
	ID             string   `yaml:"id"`
	CanonicalID    string   `yaml:"canonical_id"`
	Platform       string   `yaml:"platform"`
	State          string   `yaml:"state"`
	SeriesKey      string   `yaml:"series_key"`
	SeasonNumber   int      `yaml:"season_number"`
	EpisodeNumber  int      `yaml:"episode_number"`
	Tags           []string `yaml:"tags"`
	CacheRequested bool     `yaml:"cache_requested"`
	MediaRef       string   `yaml:"media_ref"`
	FailureKind    string   `yaml:"failure_kind"`
	FailureMessage string   `yaml:"failure_message"`
}

// Decode parses a persisted note document.
func Decode(data []byte) (models.Note, error) {
	text := string(data)
	if !strings.HasPrefix(text, delimiter+"\n") {
		return models.Note{}, fmt.Errorf("note: missing frontmatter header")
	}
	rest := text[len(delimiter)+1:]
	end := strings.Index(rest, "\n"+delimiter+"\n")
	if end < 0 {
		return models.Note{}, fmt.Errorf("note: unterminated frontmatter header")
	}
	rawHeader := rest[:end]
	body := rest[end+len(delimiter)+2:]

	var h header
	if err := yaml.Unmarshal([]byte(rawHeader), &h); err != nil {
		return models.Note{}, fmt.Errorf("note: parse header: %w", err)
	}

	n := models.Note{
		ID:             h.ID,
		CanonicalID:    h.CanonicalID,
		Platform:       models.Platform(h.Platform),
		State:          models.State(h.State),
		SeriesKey:      h.SeriesKey,
		SeasonNumber:   h.SeasonNumber,
		EpisodeNumber:  h.EpisodeNumber,
		Tags:           h.Tags,
		CacheRequested: h.CacheRequested,
		MediaRef:       h.MediaRef,
		FailureKind:    h.FailureKind,
		FailureMessage: h.FailureMessage,
		Metadata:       map[string]string{},
		Body:           body,
	}
	if n.State == "" {
		n.State = models.StateBare
	}

	for _, entry := range groupEntries(rawHeader) {
		key := entryKey(entry[0])
		if key != "" && coreKeys[key] {
			continue
		}
		raw := strings.Join(entry, "\n")
		if key != "" && len(entry) == 1 {
			// Single-line scalar: adopt it only when the codec would
			// write the identical bytes back. Anything else is kept
			// verbatim so hand-edited formatting survives.
			var parsed map[string]yaml.Node
			if yaml.Unmarshal([]byte(entry[0]), &parsed) == nil {
				if node, ok := parsed[key]; ok && node.Kind == yaml.ScalarNode {
					if scalarLine(key, node.Value) == entry[0] {
						n.Metadata[key] = node.Value
						continue
					}
					// Still readable through Meta; Encode emits the raw
					// line, not the metadata map, for this key.
					n.Metadata[key] = node.Value
				}
			}
		}
		n.ExtraHeader = append(n.ExtraHeader, raw)
	}

	return n, nil
}

// Encode renders the note back to its on-disk form.
func Encode(n models.Note) []byte {
	var sb strings.Builder
	sb.WriteString(delimiter + "\n")

	writeScalar := func(key, val string) {
		sb.WriteString(scalarLine(key, val))
		sb.WriteString("\n")
	}

	writeScalar("id", n.ID)
	writeScalar("canonical_id", n.CanonicalID)
	writeScalar("platform", string(n.Platform))
	writeScalar("state", string(n.State))
	if n.SeriesKey != "" {
		writeScalar("series_key", n.SeriesKey)
	}
	if n.SeasonNumber != 0 {
		fmt.Fprintf(&sb, "season_number: %d\n", n.SeasonNumber)
	}
	if n.EpisodeNumber != 0 {
		fmt.Fprintf(&sb, "episode_number: %d\n", n.EpisodeNumber)
	}
	if n.CacheRequested {
		sb.WriteString("cache_requested: true\n")
	}
	if n.MediaRef != "" {
		writeScalar("media_ref", n.MediaRef)
	}
	if n.FailureKind != "" {
		writeScalar("failure_kind", n.FailureKind)
	}
	if n.FailureMessage != "" {
		writeScalar("failure_message", n.FailureMessage)
	}
	if len(n.Tags) > 0 {
		sb.WriteString("tags:\n")
		for _, tag := range n.Tags {
			sb.WriteString("  - " + scalarValue(tag) + "\n")
		}
	}

	preserved := map[string]bool{}
	for _, raw := range n.ExtraHeader {
		preserved[entryKey(firstLine(raw))] = true
	}
	keys := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		if coreKeys[k] || preserved[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeScalar(k, n.Metadata[k])
	}
	for _, raw := range n.ExtraHeader {
		sb.WriteString(raw)
		sb.WriteString("\n")
	}

	sb.WriteString(delimiter + "\n")
	sb.WriteString(n.Body)
	return []byte(sb.String())
}

// groupEntries splits the raw header into top-level entries: a new entry
// starts at every line without leading whitespace, continuation lines
// stay attached to theirs.
func groupEntries(rawHeader string) [][]string {
	var groups [][]string
	for _, line := range strings.Split(rawHeader, "\n") {
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && len(groups) > 0 {
			groups[len(groups)-1] = append(groups[len(groups)-1], line)
			continue
		}
		groups = append(groups, []string{line})
	}
	return groups
}

func entryKey(line string) string {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[:idx])
}

func firstLine(raw string) string {
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

// scalarLine is the one true way the codec writes a scalar field.
func scalarLine(key, val string) string {
	return key + ": " + scalarValue(val)
}

// scalarValue quotes only when YAML would otherwise mangle the value.
func scalarValue(val string) string {
	if needsQuote(val) {
		return quote(val)
	}
	return val
}

func needsQuote(val string) bool {
	if val == "" {
		return true
	}
	switch strings.ToLower(val) {
	case "true", "false", "null", "~", "yes", "no", "on", "off":
		return true
	}
	if strings.ContainsAny(val, "\n#") || strings.Contains(val, ": ") {
		return true
	}
	if strings.HasSuffix(val, ":") {
		return true
	}
	if strings.TrimSpace(val) != val {
		return true
	}
	switch val[0] {
	case '!', '&', '*', '-', '?', '{', '}', '[', ']', '|', '>', '@', '`', '"', '\'', '%', ',':
		return true
	}
	return false
}

func quote(val string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range val {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
