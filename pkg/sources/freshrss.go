package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

const (
	freshrssPageSize = 100
	labelPrefix      = "user/-/label/"
	starredStream    = "user/-/state/com.google/starred"

	// capturedLabel marks starred items that already have a note.
	capturedLabel = "captured"

	// maxPodcastDescription caps show-notes HTML dumped into frontmatter.
	maxPodcastDescription = 500
)

var hnItemRe = regexp.MustCompile(`https?://news\.ycombinator\.com/item\?id=\d+`)

// FreshRSS pulls starred items through the GoogleReader-compatible API.
// Items are routed by their feed labels: a "podcast" label yields a
// podcast seed instead of a URL to classify, and "news"/"feed" labels
// request caching for youtube items.
type FreshRSS struct {
	cfg  models.FreshRSSConfig
	base string
	http *http.Client

	mu         sync.Mutex
	auth       string // SID token from ClientLogin
	writeToken string
}

func NewFreshRSS(cfg models.FreshRSSConfig) *FreshRSS {
	return &FreshRSS{
		cfg:  cfg,
		base: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *FreshRSS) Name() string { return "freshrss" }

// login performs ClientLogin and caches the Auth token.
func (f *FreshRSS) login(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auth != "" {
		return f.auth, nil
	}

	form := url.Values{
		"Email":  {f.cfg.Username},
		"Passwd": {f.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.base+"/accounts/ClientLogin", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("freshrss: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrNetwork, "freshrss: login", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.Wrap(apperr.ErrAuthFailure, "freshrss: login",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if token, ok := strings.CutPrefix(scanner.Text(), "Auth="); ok {
			f.auth = token
			return f.auth, nil
		}
	}
	return "", apperr.Wrap(apperr.ErrAuthFailure, "freshrss: login",
		fmt.Errorf("no Auth token in response"))
}

type freshrssItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Published int64  `json:"published"`
	Canonical []struct {
		Href string `json:"href"`
	} `json:"canonical"`
	Alternate []struct {
		Href string `json:"href"`
	} `json:"alternate"`
	Enclosure []struct {
		Href string `json:"href"`
		Type string `json:"type"`
	} `json:"enclosure"`
	Categories []string `json:"categories"`
	Summary    struct {
		Content string `json:"content"`
	} `json:"summary"`
	Origin struct {
		Title   string `json:"title"`
		HTMLURL string `json:"htmlUrl"`
	} `json:"origin"`
}

func (it freshrssItem) link() string {
	if len(it.Canonical) > 0 && it.Canonical[0].Href != "" {
		return it.Canonical[0].Href
	}
	if len(it.Alternate) > 0 {
		return it.Alternate[0].Href
	}
	return ""
}

// labels returns the feed labels, underscore-split into tags.
func (it freshrssItem) labels() []string {
	var out []string
	for _, c := range it.Categories {
		name, ok := strings.CutPrefix(c, labelPrefix)
		if !ok {
			continue
		}
		out = append(out, strings.Split(name, "_")...)
	}
	return out
}

func (it freshrssItem) audioEnclosure() string {
	for _, e := range it.Enclosure {
		if strings.HasPrefix(e.Type, "audio/") && e.Href != "" {
			return e.Href
		}
	}
	return ""
}

type freshrssStream struct {
	Items        []freshrssItem `json:"items"`
	Continuation string         `json:"continuation"`
}

// Pull walks the starred stream. Items already labeled captured are
// skipped so keep-mode syncs converge.
func (f *FreshRSS) Pull(ctx context.Context) ([]models.RemoteInboxEntry, error) {
	var out []models.RemoteInboxEntry
	continuation := ""
	for {
		params := url.Values{
			"output": {"json"},
			"n":      {fmt.Sprint(freshrssPageSize)},
		}
		if continuation != "" {
			params.Set("c", continuation)
		}
		var stream freshrssStream
		path := "/reader/api/0/stream/contents/" + starredStream + "?" + params.Encode()
		if err := f.getJSON(ctx, path, &stream); err != nil {
			return nil, err
		}
		for _, it := range stream.Items {
			entry, ok := f.entryFromItem(it)
			if ok {
				out = append(out, entry)
			}
		}
		if stream.Continuation == "" {
			break
		}
		continuation = stream.Continuation
	}
	return out, nil
}

func (f *FreshRSS) entryFromItem(it freshrssItem) (models.RemoteInboxEntry, bool) {
	labels := it.labels()
	if contains(labels, capturedLabel) {
		return models.RemoteInboxEntry{}, false
	}

	tags := append([]string{"inbox"}, labels...)
	published := ""
	if it.Published > 0 {
		published = time.Unix(it.Published, 0).UTC().Format("2006-01-02")
	}

	entry := models.RemoteInboxEntry{
		Source:      f.Name(),
		RemoteID:    it.ID,
		Title:       it.Title,
		Tags:        tags,
		PublishedAt: published,
	}

	if contains(labels, "podcast") {
		audio := it.audioEnclosure()
		if audio == "" {
			return models.RemoteInboxEntry{}, false
		}
		entry.Reference = audio
		entry.Podcast = &models.PodcastSeed{
			Title:       it.Title,
			Channel:     it.Origin.Title,
			Description: truncate(stripHTML(it.Summary.Content), maxPodcastDescription),
			PublishedAt: published,
			AudioURL:    audio,
		}
		return entry, true
	}

	entry.Reference = it.link()
	// HN feeds link to the story target; the note belongs to the
	// discussion, so lift the comments link out of the summary.
	if strings.Contains(it.Origin.HTMLURL, "news.ycombinator.com") {
		if m := hnItemRe.FindString(it.Summary.Content); m != "" {
			entry.Reference = m
		}
	}
	if entry.Reference == "" {
		return models.RemoteInboxEntry{}, false
	}

	if contains(labels, "news") || contains(labels, "feed") {
		entry.CacheRequested = true
	}
	return entry, true
}

func (f *FreshRSS) MarkProcessed(ctx context.Context, remoteID string, action models.SourceAction) error {
	token, err := f.getWriteToken(ctx)
	if err != nil {
		return err
	}
	form := url.Values{
		"i": {remoteID},
		"T": {token},
	}
	switch action {
	case models.SourceActionKeep:
		form.Set("a", labelPrefix+capturedLabel)
	case models.SourceActionDiscard:
		form.Set("r", "user/-/state/com.google/starred")
	default:
		return fmt.Errorf("freshrss: unknown action %q", action)
	}
	return f.postForm(ctx, "/reader/api/0/edit-tag", form)
}

// getWriteToken fetches the short-lived token mutating calls require.
func (f *FreshRSS) getWriteToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	cached := f.writeToken
	f.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	body, err := f.get(ctx, "/reader/api/0/token")
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(body)
	if token == "" {
		return "", apperr.Wrap(apperr.ErrAuthFailure, "freshrss: token",
			fmt.Errorf("empty token response"))
	}
	f.mu.Lock()
	f.writeToken = token
	f.mu.Unlock()
	return token, nil
}

func (f *FreshRSS) getJSON(ctx context.Context, path string, out any) error {
	body, err := f.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("freshrss: decode %s: %w", path, err)
	}
	return nil
}

func (f *FreshRSS) get(ctx context.Context, path string) (string, error) {
	auth, err := f.login(ctx)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+path, nil)
	if err != nil {
		return "", fmt.Errorf("freshrss: build request: %w", err)
	}
	req.Header.Set("Authorization", "GoogleLogin auth="+auth)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrNetwork, "freshrss: GET "+path, err)
	}
	defer resp.Body.Close()
	if err := freshrssStatus(resp.StatusCode, "GET", path); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrNetwork, "freshrss: read "+path, err)
	}
	return string(body), nil
}

func (f *FreshRSS) postForm(ctx context.Context, path string, form url.Values) error {
	auth, err := f.login(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("freshrss: build request: %w", err)
	}
	req.Header.Set("Authorization", "GoogleLogin auth="+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ErrNetwork, "freshrss: POST "+path, err)
	}
	defer resp.Body.Close()
	return freshrssStatus(resp.StatusCode, "POST", path)
}

func freshrssStatus(code int, method, path string) error {
	op := "freshrss: " + method + " " + path
	switch {
	case code < 400:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.Wrap(apperr.ErrAuthFailure, op, fmt.Errorf("status %d", code))
	case code == http.StatusNotFound:
		return apperr.Wrap(apperr.ErrNotFound, op, fmt.Errorf("status %d", code))
	case code == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.ErrRateLimited, op, fmt.Errorf("status %d", code))
	default:
		return apperr.Wrap(apperr.ErrNetwork, op, fmt.Errorf("status %d", code))
	}
}

func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
