package fetchers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
)

const githubAPI = "https://api.github.com"

var githubHeaders = map[string]string{
	"Accept": "application/vnd.github+json",
}

// GitHub fetches repository metadata from the public REST API.
// Unauthenticated access is enough for single-user capture volumes.
type GitHub struct {
	client *fetcher.Client
	api    string
}

func NewGitHub(client *fetcher.Client) *GitHub {
	return &GitHub{client: client, api: githubAPI}
}

type githubRepo struct {
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	HTMLURL       string   `json:"html_url"`
	Homepage      string   `json:"homepage"`
	Stars         int      `json:"stargazers_count"`
	Forks         int      `json:"forks_count"`
	Watchers      int      `json:"subscribers_count"`
	Topics        []string `json:"topics"`
	DefaultBranch string   `json:"default_branch"`
	CloneURL      string   `json:"clone_url"`
	SSHURL        string   `json:"ssh_url"`
	CreatedAt     string   `json:"created_at"`
	PushedAt      string   `json:"pushed_at"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (f *GitHub) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	var repo githubRepo
	if err := f.client.GetJSON(ctx, f.api+"/repos/"+n.CanonicalID, githubHeaders, &repo); err != nil {
		return models.Metadata{}, err
	}

	meta := models.Metadata{
		Title:     repo.FullName,
		Author:    repo.Owner.Login,
		SourceURL: repo.HTMLURL,
		Extra: map[string]string{
			"stars":          fmt.Sprint(repo.Stars),
			"forks":          fmt.Sprint(repo.Forks),
			"watchers":       fmt.Sprint(repo.Watchers),
			"default_branch": repo.DefaultBranch,
			"clone_url":      repo.CloneURL,
			"ssh_url":        repo.SSHURL,
		},
	}
	if repo.Description != "" {
		meta.Extra["description"] = repo.Description
	}
	if repo.Homepage != "" {
		meta.Extra["homepage"] = repo.Homepage
	}
	if len(repo.Topics) > 0 {
		meta.Extra["topics"] = strings.Join(repo.Topics, ", ")
	}
	if t, err := time.Parse(time.RFC3339, repo.CreatedAt); err == nil {
		meta.PublishedAt = t.Format("2006-01-02")
	}
	if t, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
		meta.Extra["last_push"] = t.Format("2006-01-02")
	}

	// Languages are a separate endpoint; failure there is cosmetic and
	// never fails the fetch.
	var langs map[string]int64
	if err := f.client.GetJSON(ctx, f.api+"/repos/"+n.CanonicalID+"/languages", githubHeaders, &langs); err == nil && len(langs) > 0 {
		meta.Extra["languages"] = topLanguages(langs, 5)
	}
	return meta, nil
}

// topLanguages orders languages by byte count descending.
func topLanguages(langs map[string]int64, limit int) string {
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if langs[names[i]] != langs[names[j]] {
			return langs[names[i]] > langs[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return strings.Join(names, ", ")
}
