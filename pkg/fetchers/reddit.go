package fetchers

import (
	"context"
	"fmt"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
)

// Reddit fetches thread metadata from the public .json endpoint. The
// subreddit comes from the classifier; reddit has no subreddit-less
// thread URL that returns JSON reliably.
type Reddit struct {
	client *fetcher.Client
}

func NewReddit(client *fetcher.Client) *Reddit {
	return &Reddit{client: client}
}

type redditPost struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Thumbnail   string  `json:"thumbnail"`
	IsSelf      bool    `json:"is_self"`
	Over18      bool    `json:"over_18"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *Reddit) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	sub := n.Meta("subreddit")
	if sub == "" {
		return models.Metadata{}, apperr.Wrap(apperr.ErrInvalidReference,
			"reddit: fetch "+n.CanonicalID, fmt.Errorf("note has no subreddit"))
	}

	threadURL := fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s.json", sub, n.CanonicalID)
	var listings []redditListing
	if err := f.client.GetJSON(ctx, threadURL, nil, &listings); err != nil {
		return models.Metadata{}, err
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return models.Metadata{}, apperr.Wrap(apperr.ErrNotFound,
			"reddit: fetch "+n.CanonicalID, fmt.Errorf("empty listing"))
	}
	post := listings[0].Data.Children[0].Data

	meta := models.Metadata{
		Title:     post.Title,
		Author:    post.Author,
		SourceURL: "https://www.reddit.com" + post.Permalink,
		Extra: map[string]string{
			"subreddit":    post.Subreddit,
			"score":        fmt.Sprint(post.Score),
			"num_comments": fmt.Sprint(post.NumComments),
		},
	}
	if post.CreatedUTC > 0 {
		meta.PublishedAt = time.Unix(int64(post.CreatedUTC), 0).UTC().Format("2006-01-02")
	}
	// Link posts point at a target; keep it next to the permalink.
	if !post.IsSelf && post.URL != "" {
		meta.Extra["target_url"] = post.URL
	}
	if thumb := post.Thumbnail; usableThumbnail(thumb) && !post.Over18 {
		meta.Body = fmt.Sprintf("\n![thumbnail](%s)\n", thumb)
	}
	return meta, nil
}

// usableThumbnail filters reddit's placeholder thumbnail values.
func usableThumbnail(thumb string) bool {
	switch thumb {
	case "", "self", "default", "nsfw", "spoiler", "image":
		return false
	}
	return true
}
