package note

import (
	"strings"
	"testing"

	"github.com/dtnitsch/capturemd/models"
)

func TestRoundTripCoreFields(t *testing.T) {
	n := models.NewNote(models.PlatformYouTube, "dQw4w9WgXcQ")
	n.State = models.StateCached
	n.SeriesKey = "Some Channel"
	n.SeasonNumber = 2021
	n.EpisodeNumber = 3
	n.CacheRequested = true
	n.MediaRef = "videos/yt/Some_Channel/2021/dQw4w9WgXcQ.mp4"
	n.SetMeta("title", "A Video: The Sequel")
	n.SetMeta("duration", "613")
	n.Body = "# Notes\n\nsome body text\n"

	got, err := Decode(Encode(n))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ID != n.ID {
		t.Errorf("id = %q, want %q", got.ID, n.ID)
	}
	if got.CanonicalID != n.CanonicalID {
		t.Errorf("canonical_id = %q, want %q", got.CanonicalID, n.CanonicalID)
	}
	if got.Platform != n.Platform || got.State != n.State {
		t.Errorf("platform/state = %s/%s", got.Platform, got.State)
	}
	if got.SeriesKey != n.SeriesKey || got.SeasonNumber != 2021 || got.EpisodeNumber != 3 {
		t.Errorf("series fields = %q/%d/%d", got.SeriesKey, got.SeasonNumber, got.EpisodeNumber)
	}
	if !got.CacheRequested || got.MediaRef != n.MediaRef {
		t.Errorf("cache fields = %v/%q", got.CacheRequested, got.MediaRef)
	}
	if got.Meta("title") != "A Video: The Sequel" || got.Meta("duration") != "613" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if got.Body != n.Body {
		t.Errorf("body = %q, want %q", got.Body, n.Body)
	}

	// A second encode is byte-identical: the codec is a fixed point.
	first := Encode(n)
	second := Encode(got)
	if string(first) != string(second) {
		t.Errorf("encode not stable:\n%s\n----\n%s", first, second)
	}
}

func TestUnknownHeaderFieldsSurviveVerbatim(t *testing.T) {
	doc := "---\n" +
		"id: 123e4567-e89b-12d3-a456-426614174000\n" +
		"canonical_id: golang/go\n" +
		"platform: github\n" +
		"state: parsed\n" +
		"tags:\n" +
		"  - inbox\n" +
		"watched_on:   2023-05-01   # when I got to it\n" +
		"my_rating: 'five stars'\n" +
		"related:\n" +
		"  - golang/tools\n" +
		"  - golang/mod\n" +
		"---\n" +
		"body line\n"

	n, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	out := string(Encode(n))
	for _, raw := range []string{
		"watched_on:   2023-05-01   # when I got to it\n",
		"my_rating: 'five stars'\n",
		"related:\n  - golang/tools\n  - golang/mod\n",
	} {
		if !strings.Contains(out, raw) {
			t.Errorf("raw header entry not preserved:\n%q\nin:\n%s", raw, out)
		}
	}

	// The oddly formatted scalar is still readable as metadata.
	if n.Meta("my_rating") != "five stars" {
		t.Errorf("my_rating = %q", n.Meta("my_rating"))
	}

	// But not emitted twice.
	if strings.Count(out, "my_rating") != 1 {
		t.Errorf("my_rating duplicated:\n%s", out)
	}
}

func TestSetMetaTakesOverPreservedField(t *testing.T) {
	doc := "---\n" +
		"id: abc\n" +
		"canonical_id: x\n" +
		"platform: bookmark\n" +
		"state: bare\n" +
		"title:    Old Title   # stale\n" +
		"---\n"

	n, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	n.SetMeta("title", "New Title")

	out := string(Encode(n))
	if !strings.Contains(out, "title: New Title\n") {
		t.Errorf("rewritten title missing:\n%s", out)
	}
	if strings.Contains(out, "Old Title") {
		t.Errorf("stale title survived:\n%s", out)
	}
}

func TestDecodeRejectsMissingHeader(t *testing.T) {
	for _, doc := range []string{"", "no header at all\n", "---\nunterminated: yes\n"} {
		if _, err := Decode([]byte(doc)); err == nil {
			t.Errorf("Decode(%q): expected error", doc)
		}
	}
}

func TestEncodeQuotesAwkwardScalars(t *testing.T) {
	n := models.NewNote(models.PlatformGenericWeb, "https://example.com/a")
	n.SetMeta("title", "true")
	n.SetMeta("description", "contains: a colon")

	got, err := Decode(Encode(n))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Meta("title") != "true" {
		t.Errorf("title = %q", got.Meta("title"))
	}
	if got.Meta("description") != "contains: a colon" {
		t.Errorf("description = %q", got.Meta("description"))
	}
}
