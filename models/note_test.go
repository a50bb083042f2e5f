package models

import (
	"testing"
)

func TestNoteLifecycle(t *testing.T) {
	n := NewNote(PlatformYouTube, "dQw4w9WgXcQ")

	if n.State != StateBare {
		t.Fatalf("new note state = %s, want %s", n.State, StateBare)
	}
	if !n.HasTag("inbox") {
		t.Errorf("new note missing inbox tag: %v", n.Tags)
	}

	if err := n.MarkParsed(); err != nil {
		t.Fatalf("MarkParsed: %v", err)
	}
	if err := n.RequestCaching(); err != nil {
		t.Fatalf("RequestCaching: %v", err)
	}
	if err := n.MarkCached("videos/yt/Channel/2021/dQw4w9WgXcQ.mp4"); err != nil {
		t.Fatalf("MarkCached: %v", err)
	}
	if n.MediaRef == "" {
		t.Error("cached note has empty media ref")
	}

	// Nothing leaves Cached except retry-to-Bare.
	if err := n.MarkParsed(); err == nil {
		t.Error("expected error parsing a cached note")
	}
	if err := n.Retry(); err != nil {
		t.Fatalf("Retry from cached: %v", err)
	}
	if n.MediaRef != "" {
		t.Errorf("media ref survived retry: %q", n.MediaRef)
	}
}

func TestNoteTransitionTable(t *testing.T) {
	tests := []struct {
		from State
		to   State
		ok   bool
	}{
		{StateBare, StateParsed, true},
		{StateBare, StateFailed, true},
		{StateBare, StateCached, false},
		{StateBare, StateCachingRequested, false},
		{StateParsed, StateParsed, true}, // re-parse refresh
		{StateParsed, StateCachingRequested, true},
		{StateParsed, StateFailed, true},
		{StateParsed, StateCached, false},
		{StateCachingRequested, StateCached, true},
		{StateCachingRequested, StateFailed, true},
		{StateCached, StateBare, true},
		{StateCached, StateParsed, false},
		{StateFailed, StateBare, true},
		{StateFailed, StateParsed, false},
	}

	for _, tt := range tests {
		n := NewNote(PlatformYouTube, "x")
		n.State = tt.from
		err := n.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s -> %s: expected rejection", tt.from, tt.to)
		}
	}
}

func TestMediaRefOnlyWhenCached(t *testing.T) {
	n := NewNote(PlatformYouTube, "abc123def45")
	if err := n.MarkCached("somewhere.mp4"); err == nil {
		t.Fatal("MarkCached from bare should fail")
	}
	if n.MediaRef != "" {
		t.Errorf("media ref set on failed transition: %q", n.MediaRef)
	}

	n.State = StateCachingRequested
	if err := n.MarkCached(""); err == nil {
		t.Error("MarkCached with empty ref should fail")
	}
}

func TestRequestCachingNonCacheable(t *testing.T) {
	n := NewNote(PlatformGitHub, "golang/go")
	n.State = StateParsed
	if err := n.RequestCaching(); err == nil {
		t.Error("github notes must not enter caching-requested")
	}
}

func TestMarkFailedRecordsKind(t *testing.T) {
	n := NewNote(PlatformReddit, "t3abc")
	if err := n.MarkFailed("NetworkError", "connection refused"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if n.FailureKind != "NetworkError" || n.FailureMessage == "" {
		t.Errorf("failure fields = %q/%q", n.FailureKind, n.FailureMessage)
	}

	if err := n.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if n.FailureKind != "" || n.FailureMessage != "" {
		t.Errorf("failure fields survived retry: %q/%q", n.FailureKind, n.FailureMessage)
	}
}

func TestApplyMetadataMerge(t *testing.T) {
	n := NewNote(PlatformYouTube, "vid")
	n.Tags = []string{"inbox", "watch-later"}
	n.Body = "my own thoughts\n"

	n.ApplyMetadata(Metadata{
		Title:       "A Video",
		PublishedAt: "2021-03-01",
		SeriesKey:   "Some Channel",
		Tags:        []string{"inbox", "video"},
		Body:        "![thumbnail](https://example.com/t.jpg)\n",
		Extra:       map[string]string{"duration": "613"},
	})

	if got := n.Meta("title"); got != "A Video" {
		t.Errorf("title = %q", got)
	}
	if n.SeriesKey != "Some Channel" {
		t.Errorf("series key = %q", n.SeriesKey)
	}
	want := []string{"inbox", "watch-later", "video"}
	if len(n.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", n.Tags, want)
	}
	for i := range want {
		if n.Tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, n.Tags[i], want[i])
		}
	}
	if n.Body[:2] != "![" {
		t.Errorf("fetch body not prepended: %q", n.Body)
	}

	// Re-applying the same metadata changes nothing.
	before := n.Body
	n.ApplyMetadata(Metadata{Body: "![thumbnail](https://example.com/t.jpg)\n"})
	if n.Body != before {
		t.Errorf("body duplicated on re-apply: %q", n.Body)
	}
}
