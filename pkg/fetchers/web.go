package fetchers

import (
	"context"
	"fmt"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
	"github.com/dtnitsch/capturemd/pkg/webpage"
)

// Web is the generic bookmark fetcher: download the page, extract what
// the markup and readability give us.
type Web struct {
	client *fetcher.Client
}

func NewWeb(client *fetcher.Client) *Web {
	return &Web{client: client}
}

func (f *Web) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	pageURL := n.Meta("url")
	if pageURL == "" {
		pageURL = n.CanonicalID
	}

	headers := map[string]string{"User-Agent": fetcher.BrowserUserAgent}
	html, err := f.client.GetBytes(ctx, pageURL, headers)
	if err != nil {
		return models.Metadata{}, err
	}

	ex, err := webpage.Extract(html, pageURL)
	if err != nil {
		return models.Metadata{}, err
	}

	meta := models.Metadata{
		Title:       ex.Title,
		Author:      ex.Author,
		PublishedAt: ex.Published,
		SourceURL:   pageURL,
		Extra:       map[string]string{},
	}
	if ex.Description != "" {
		meta.Extra["description"] = ex.Description
	}
	if ex.SiteName != "" {
		meta.Extra["site"] = ex.SiteName
	}
	if ex.Language != "" {
		meta.Extra["language"] = ex.Language
	}
	if ex.Excerpt != "" && ex.Excerpt != ex.Description {
		meta.Body = fmt.Sprintf("\n> %s\n", ex.Excerpt)
	}
	return meta, nil
}
