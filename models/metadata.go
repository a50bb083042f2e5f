package models

// Metadata is the payload every platform fetch contract returns. The
// dispatcher merges it into the note all-or-nothing: a fetch either
// produces a complete Metadata or an error, never a partial write.
type Metadata struct {
	Title       string
	Author      string
	PublishedAt string // YYYY-MM-DD when known
	Tags        []string
	SourceURL   string
	SeriesKey   string            // channel/show identity for the reindexer
	Body        string            // markdown prepended to the note body
	Extra       map[string]string // platform-specific scalar fields
}

// MediaAsset describes a locally cached media file.
type MediaAsset struct {
	LocalPath string
	Duration  int // seconds, 0 when unknown
	Format    string
}
