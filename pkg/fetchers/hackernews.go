package fetchers

import (
	"context"
	"fmt"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
)

// HackerNews fetches item metadata from the Algolia API, which returns
// the whole comment tree in one call.
type HackerNews struct {
	client *fetcher.Client
}

func NewHackerNews(client *fetcher.Client) *HackerNews {
	return &HackerNews{client: client}
}

type hnItem struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	URL       string   `json:"url"`
	Points    int      `json:"points"`
	CreatedAt string   `json:"created_at"`
	Children  []hnItem `json:"children"`
}

// commentCount walks the tree; Algolia has no flat counter.
func (it hnItem) commentCount() int {
	n := len(it.Children)
	for _, child := range it.Children {
		n += child.commentCount()
	}
	return n
}

func (f *HackerNews) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	var item hnItem
	if err := f.client.GetJSON(ctx,
		"https://hn.algolia.com/api/v1/items/"+n.CanonicalID, nil, &item); err != nil {
		return models.Metadata{}, err
	}

	meta := models.Metadata{
		Title:     item.Title,
		Author:    item.Author,
		SourceURL: "https://news.ycombinator.com/item?id=" + n.CanonicalID,
		Extra: map[string]string{
			"points":       fmt.Sprint(item.Points),
			"num_comments": fmt.Sprint(item.commentCount()),
		},
	}
	if item.URL != "" {
		meta.Extra["target_url"] = item.URL
	}
	if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		meta.PublishedAt = t.Format("2006-01-02")
	}
	return meta, nil
}
