package fetchers

import (
	"context"
	"fmt"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/sources"
)

// Wallabag resolves notes whose canonical id is a wallabag entry id.
type Wallabag struct {
	client *sources.Wallabag
}

func NewWallabag(client *sources.Wallabag) *Wallabag {
	return &Wallabag{client: client}
}

func (f *Wallabag) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	return f.client.EntryMetadata(ctx, n.CanonicalID)
}

// FreshRSS resolves reader-item notes. The item's article URL is
// recorded on the note at sync time; fetching is then an ordinary page
// extraction against it.
type FreshRSS struct {
	web *Web
}

func NewFreshRSS(web *Web) *FreshRSS {
	return &FreshRSS{web: web}
}

func (f *FreshRSS) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	if n.Meta("url") == "" {
		return models.Metadata{}, apperr.Wrap(apperr.ErrInvalidReference,
			"freshrss: fetch "+n.CanonicalID, fmt.Errorf("note has no article url"))
	}
	meta, err := f.web.Fetch(ctx, n)
	if err != nil {
		return models.Metadata{}, err
	}
	meta.SourceURL = n.Meta("url")
	return meta, nil
}

// Podcast re-emits the metadata a podcast note was born with. Podcast
// notes come from feed enclosures and have no platform API to ask, so a
// re-parse is a refresh from the note's own header.
type Podcast struct{}

func NewPodcast() *Podcast {
	return &Podcast{}
}

func (f *Podcast) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	if n.Meta("audio_url") == "" && n.CanonicalID == "" {
		return models.Metadata{}, apperr.Wrap(apperr.ErrInvalidReference,
			"podcast: fetch", fmt.Errorf("note %s has no audio url", n.ID))
	}
	meta := models.Metadata{
		Title:     n.Meta("title"),
		Author:    n.Meta("channel"),
		SeriesKey: n.SeriesKey,
		SourceURL: n.Meta("audio_url"),
		Extra:     map[string]string{},
	}
	if meta.SourceURL == "" {
		meta.SourceURL = n.CanonicalID
	}
	if d := n.Meta("description"); d != "" {
		meta.Extra["description"] = d
	}
	if p := n.Meta("published"); p != "" {
		meta.PublishedAt = p
	}
	if d := n.Meta("duration"); d != "" {
		meta.Extra["duration"] = d
	}
	return meta, nil
}
