package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

const wallabagPageSize = 30

// processedTag marks wallabag entries that already have a note. Entries
// carrying it are filtered out of Pull, so keep-mode syncs converge.
const processedTag = "parsed"

// Wallabag talks to a wallabag instance over its REST API with an
// OAuth2 password grant. It is both a sync source and the push-back
// target for bookmark notes captured locally.
type Wallabag struct {
	cfg  models.WallabagConfig
	base string
	conf *oauth2.Config

	mu     sync.Mutex
	client *http.Client
}

func NewWallabag(cfg models.WallabagConfig) *Wallabag {
	base := strings.TrimRight(cfg.Host, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Wallabag{
		cfg:  cfg,
		base: base,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: base + "/oauth/v2/token",
			},
		},
	}
}

func (w *Wallabag) Name() string { return "wallabag" }

// httpClient lazily performs the password grant and caches an
// auto-refreshing client for the rest of the process.
func (w *Wallabag) httpClient(ctx context.Context) (*http.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		return w.client, nil
	}
	token, err := w.conf.PasswordCredentialsToken(ctx, w.cfg.Username, w.cfg.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrAuthFailure, "wallabag: token", err)
	}
	w.client = oauth2.NewClient(ctx, w.conf.TokenSource(ctx, token))
	w.client.Timeout = 30 * time.Second
	return w.client, nil
}

type wallabagEntry struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Tags      []struct {
		Label string `json:"label"`
	} `json:"tags"`
}

func (e wallabagEntry) hasTag(label string) bool {
	for _, t := range e.Tags {
		if t.Label == label {
			return true
		}
	}
	return false
}

type wallabagEntriesPage struct {
	Page     int `json:"page"`
	Pages    int `json:"pages"`
	Embedded struct {
		Items []wallabagEntry `json:"items"`
	} `json:"_embedded"`
}

// Pull walks the entry pages and returns every entry that does not yet
// carry the processed tag. Filtering is client side: the wallabag API
// has no "entries without tag X" query.
func (w *Wallabag) Pull(ctx context.Context) ([]models.RemoteInboxEntry, error) {
	var out []models.RemoteInboxEntry
	for page := 1; ; page++ {
		var resp wallabagEntriesPage
		params := url.Values{
			"perPage": {strconv.Itoa(wallabagPageSize)},
			"page":    {strconv.Itoa(page)},
			"sort":    {"created"},
			"order":   {"asc"},
		}
		if err := w.getJSON(ctx, "/api/entries.json?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, e := range resp.Embedded.Items {
			if e.hasTag(processedTag) {
				continue
			}
			out = append(out, models.RemoteInboxEntry{
				Source:    w.Name(),
				RemoteID:  strconv.Itoa(e.ID),
				Reference: e.URL,
				Title:     e.Title,
			})
		}
		if resp.Page >= resp.Pages || len(resp.Embedded.Items) == 0 {
			break
		}
	}
	return out, nil
}

func (w *Wallabag) MarkProcessed(ctx context.Context, remoteID string, action models.SourceAction) error {
	switch action {
	case models.SourceActionKeep:
		body := url.Values{"tags": {processedTag}}
		return w.do(ctx, http.MethodPost,
			fmt.Sprintf("/api/entries/%s/tags.json", remoteID), body, nil)
	case models.SourceActionDiscard:
		return w.do(ctx, http.MethodDelete,
			fmt.Sprintf("/api/entries/%s.json", remoteID), nil, nil)
	default:
		return fmt.Errorf("wallabag: unknown action %q", action)
	}
}

// fetchEntry loads a single entry, for notes whose canonical id is a
// wallabag entry id.
func (w *Wallabag) fetchEntry(ctx context.Context, id string) (wallabagEntry, error) {
	var e wallabagEntry
	err := w.getJSON(ctx, fmt.Sprintf("/api/entries/%s.json", id), &e)
	return e, err
}

// EntryMetadata maps a wallabag entry onto note metadata.
func (w *Wallabag) EntryMetadata(ctx context.Context, id string) (models.Metadata, error) {
	e, err := w.fetchEntry(ctx, id)
	if err != nil {
		return models.Metadata{}, err
	}
	meta := models.Metadata{
		Title:     e.Title,
		SourceURL: e.URL,
		Extra: map[string]string{
			"wallabag_id": strconv.Itoa(e.ID),
		},
	}
	if e.CreatedAt != "" {
		meta.PublishedAt = e.CreatedAt
	}
	for _, t := range e.Tags {
		if t.Label != processedTag {
			meta.Tags = append(meta.Tags, t.Label)
		}
	}
	return meta, nil
}

// Exists reports whether the instance already has an entry for url,
// returning its id when it does.
func (w *Wallabag) Exists(ctx context.Context, pageURL string) (string, error) {
	var resp struct {
		Exists *int `json:"exists"`
	}
	params := url.Values{"url": {pageURL}, "return_id": {"1"}}
	if err := w.getJSON(ctx, "/api/entries/exists.json?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.Exists == nil || *resp.Exists == 0 {
		return "", nil
	}
	return strconv.Itoa(*resp.Exists), nil
}

// Add pushes a URL into the instance, tagged so it will not come back
// on the next Pull.
func (w *Wallabag) Add(ctx context.Context, pageURL string, tags []string) (string, error) {
	body := url.Values{
		"url":  {pageURL},
		"tags": {strings.Join(append(append([]string{}, tags...), processedTag), ",")},
	}
	var e wallabagEntry
	if err := w.do(ctx, http.MethodPost, "/api/entries.json", body, &e); err != nil {
		return "", err
	}
	return strconv.Itoa(e.ID), nil
}

func (w *Wallabag) getJSON(ctx context.Context, path string, out any) error {
	return w.do(ctx, http.MethodGet, path, nil, out)
}

func (w *Wallabag) do(ctx context.Context, method, path string, form url.Values, out any) error {
	client, err := w.httpClient(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, w.base+path, body)
	if err != nil {
		return fmt.Errorf("wallabag: build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ErrNetwork, "wallabag: "+method+" "+path, err)
	}
	defer resp.Body.Close()

	if err := wallabagStatus(resp.StatusCode, method, path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wallabag: decode %s: %w", path, err)
	}
	return nil
}

func wallabagStatus(code int, method, path string) error {
	op := "wallabag: " + method + " " + path
	switch {
	case code < 400:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return apperr.Wrap(apperr.ErrNotFound, op, fmt.Errorf("status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.Wrap(apperr.ErrAuthFailure, op, fmt.Errorf("status %d", code))
	case code == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.ErrRateLimited, op, fmt.Errorf("status %d", code))
	default:
		return apperr.Wrap(apperr.ErrNetwork, op, fmt.Errorf("status %d", code))
	}
}
