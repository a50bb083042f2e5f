package models

// SourceAction is what happens to a remote inbox entry after its note has
// been captured.
type SourceAction string

const (
	// SourceActionKeep tags the remote entry as processed and leaves it.
	SourceActionKeep SourceAction = "keep"
	// SourceActionDiscard removes the remote entry (delete or unstar).
	SourceActionDiscard SourceAction = "discard"
)

// RemoteInboxEntry is one item pulled from a sync source. Entries are
// persisted in the ledger so a crashed sync resumes without re-creating
// notes.
type RemoteInboxEntry struct {
	Source      string
	RemoteID    string
	Reference   string // URL or platform id to classify
	Title       string
	Tags        []string
	PublishedAt string // YYYY-MM-DD when the source knows it

	// CacheRequested marks entries the source wants cached (for example a
	// feed-tagged youtube item).
	CacheRequested bool

	// Podcast carries explicit metadata when the source routed this entry
	// to podcast capture instead of URL classification.
	Podcast *PodcastSeed

	Resolved bool
}

// PodcastSeed is the explicit metadata a podcast note is created from.
// Podcast notes skip the fetch step and are born Parsed.
type PodcastSeed struct {
	Title       string
	Channel     string
	Description string
	PublishedAt string
	AudioURL    string
	Duration    string
}

// NewPodcastNote builds a podcast note. The audio URL is the canonical
// id; the note is born Parsed with caching requested, since there is no
// platform API to fetch from later.
func NewPodcastNote(seed PodcastSeed) Note {
	n := NewNote(PlatformPodcast, seed.AudioURL)
	n.SeriesKey = seed.Channel
	n.AddTags("podcast")
	n.SetMeta("title", seed.Title)
	n.SetMeta("channel", seed.Channel)
	n.SetMeta("audio_url", seed.AudioURL)
	if seed.Description != "" {
		n.SetMeta("description", seed.Description)
	}
	if seed.PublishedAt != "" {
		n.SetMeta("published", seed.PublishedAt)
	}
	if seed.Duration != "" {
		n.SetMeta("duration", seed.Duration)
	}
	_ = n.MarkParsed()
	n.CacheRequested = true
	return n
}
