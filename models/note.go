package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// State is a note's position in the capture lifecycle.
type State string

const (
	StateBare             State = "bare"
	StateParsed           State = "parsed"
	StateCachingRequested State = "caching-requested"
	StateCached           State = "cached"
	StateFailed           State = "failed"
)

// transitions is the full set of legal state changes. Anything not listed
// here is rejected by Note.Transition.
var transitions = map[State][]State{
	StateBare:             {StateParsed, StateFailed},
	StateParsed:           {StateParsed, StateCachingRequested, StateFailed},
	StateCachingRequested: {StateCached, StateFailed},
	StateCached:           {StateBare},
	StateFailed:           {StateBare},
}

// Note is the central entity: one captured reference, persisted as a
// markdown file with a YAML header.
type Note struct {
	ID             string            // uuid, doubles as the markdown filename
	CanonicalID    string            // unique per (platform, remote id), never changes
	Platform       Platform
	State          State
	SeriesKey      string            // channel/show identity, set at parse time
	SeasonNumber   int               // assigned only by the reindexer
	EpisodeNumber  int               // assigned only by the reindexer
	Tags           []string
	CacheRequested bool
	MediaRef       string            // local asset path, present iff State == Cached
	FailureKind    string            // recorded when State == Failed
	FailureMessage string
	Metadata       map[string]string // scalar header fields owned by the fetch merge
	ExtraHeader    []string          // raw header lines the codec does not own, kept verbatim
	Body           string

	// Path is where the store loaded the note from; empty for new notes.
	Path string
}

// NewNote creates a Bare note for a freshly classified reference.
func NewNote(platform Platform, canonicalID string) Note {
	return Note{
		ID:          uuid.NewString(),
		CanonicalID: canonicalID,
		Platform:    platform,
		State:       StateBare,
		Tags:        []string{"inbox"},
		Metadata:    map[string]string{},
	}
}

// CanTransition reports whether moving to the given state is legal.
func (n *Note) CanTransition(to State) bool {
	for _, next := range transitions[n.State] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the note to a new state, enforcing the lifecycle table.
// MediaRef is cleared on every transition away from Cached and can only be
// set through MarkCached, so the media_ref-iff-Cached invariant holds no
// matter which code path drives the change.
func (n *Note) Transition(to State) error {
	if !n.CanTransition(to) {
		return fmt.Errorf("note %s: illegal transition %s -> %s", n.CanonicalID, n.State, to)
	}
	n.State = to
	if to != StateCached {
		n.MediaRef = ""
	}
	if to != StateFailed {
		n.FailureKind = ""
		n.FailureMessage = ""
	}
	return nil
}

// MarkParsed records a successful fetch merge.
func (n *Note) MarkParsed() error {
	return n.Transition(StateParsed)
}

// MarkFailed records a failure with its kind. Legal from any state that
// can fail; the previous state is abandoned.
func (n *Note) MarkFailed(kind, msg string) error {
	if err := n.Transition(StateFailed); err != nil {
		return err
	}
	n.FailureKind = kind
	n.FailureMessage = msg
	return nil
}

// RequestCaching moves a Parsed note toward the media cache. Only
// cacheable platforms may enter CachingRequested.
func (n *Note) RequestCaching() error {
	if !n.Platform.Cacheable() {
		return fmt.Errorf("note %s: platform %s is not cacheable", n.CanonicalID, n.Platform)
	}
	if err := n.Transition(StateCachingRequested); err != nil {
		return err
	}
	n.CacheRequested = true
	return nil
}

// MarkCached records a downloaded asset. This is the only way MediaRef
// gets set.
func (n *Note) MarkCached(mediaRef string) error {
	if mediaRef == "" {
		return fmt.Errorf("note %s: cached without a media ref", n.CanonicalID)
	}
	if err := n.Transition(StateCached); err != nil {
		return err
	}
	n.MediaRef = mediaRef
	return nil
}

// Retry is the manual escape hatch: Failed (or Cached, for a forced
// refresh) back to Bare. Failure fields and the media ref are cleared.
func (n *Note) Retry() error {
	return n.Transition(StateBare)
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTags unions new tags into the note, preserving existing order.
func (n *Note) AddTags(tags ...string) {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || n.HasTag(t) {
			continue
		}
		n.Tags = append(n.Tags, t)
	}
}

// SetMeta writes a fetch-owned header field. Any verbatim-preserved header
// line for the same key is dropped so the field is not emitted twice.
func (n *Note) SetMeta(key, value string) {
	if n.Metadata == nil {
		n.Metadata = map[string]string{}
	}
	n.Metadata[key] = value
	prefix := key + ":"
	kept := n.ExtraHeader[:0]
	for _, raw := range n.ExtraHeader {
		if strings.HasPrefix(raw, prefix) {
			continue
		}
		kept = append(kept, raw)
	}
	n.ExtraHeader = kept
}

// Meta reads a metadata field, falling back to the empty string.
func (n *Note) Meta(key string) string {
	return n.Metadata[key]
}

// PublishedAt parses the note's published date. The second return is
// false when the date is missing or unparseable; the reindexer sorts
// those notes last.
func (n *Note) PublishedAt() (time.Time, bool) {
	raw := n.Meta("published")
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ApplyMetadata merges a fetch result into the note: fetch-owned fields
// overwrite, tags union, fetch body content is prepended. The caller
// decides the state transition; a failed fetch never reaches this point,
// so the merge is all-or-nothing.
func (n *Note) ApplyMetadata(meta Metadata) {
	if meta.Title != "" {
		n.SetMeta("title", meta.Title)
	}
	if meta.Author != "" {
		n.SetMeta("author", meta.Author)
	}
	if meta.PublishedAt != "" {
		n.SetMeta("published", meta.PublishedAt)
	}
	if meta.SourceURL != "" {
		n.SetMeta("url", meta.SourceURL)
	}
	for k, v := range meta.Extra {
		n.SetMeta(k, v)
	}
	if meta.SeriesKey != "" {
		n.SeriesKey = meta.SeriesKey
	}
	n.AddTags(meta.Tags...)
	if meta.Body != "" && !strings.Contains(n.Body, meta.Body) {
		if n.Body == "" {
			n.Body = meta.Body
		} else {
			n.Body = meta.Body + "\n" + n.Body
		}
	}
}

// Merge folds another note for the same canonical id into this one.
// Used by Upsert to make re-capture idempotent: new non-empty fields win,
// tags union, the existing document's unknown header lines survive.
func (n *Note) Merge(in Note) {
	if in.CanonicalID != "" && in.CanonicalID != n.CanonicalID {
		return
	}
	if in.SeriesKey != "" {
		n.SeriesKey = in.SeriesKey
	}
	if in.EpisodeNumber != 0 {
		n.EpisodeNumber = in.EpisodeNumber
	}
	if in.SeasonNumber != 0 {
		n.SeasonNumber = in.SeasonNumber
	}
	if in.CacheRequested {
		n.CacheRequested = true
	}
	n.AddTags(in.Tags...)
	for k, v := range in.Metadata {
		if v != "" {
			n.SetMeta(k, v)
		}
	}
	if in.Body != "" && !strings.Contains(n.Body, in.Body) {
		if n.Body == "" {
			n.Body = in.Body
		} else {
			n.Body = in.Body + "\n" + n.Body
		}
	}
}
