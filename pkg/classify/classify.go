// Package classify turns raw references (URLs, bare platform IDs) into a
// platform plus a canonical id. Matchers run in a fixed registration
// order; the first claim wins, and a syntactically valid URL nobody
// claims falls through to the generic bookmark matcher.
package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
)

// Ref is a classified reference.
type Ref struct {
	Platform    models.Platform
	CanonicalID string
	// Meta carries classifier-derived extras the fetcher needs later
	// (subreddit, source url).
	Meta map[string]string
}

var (
	youtubeIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	ownerRepoRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)
	readerItemRe = regexp.MustCompile(`^tag:google\.com,2005:reader/item/([0-9a-f]+)$`)
	digitsRe     = regexp.MustCompile(`^[0-9]+$`)
	googleHostRe = regexp.MustCompile(`^(www\.)?google\.[a-z.]+$`)
)

type matcher struct {
	name string
	fn   func(raw string, u *url.URL) (Ref, bool)
}

// Classifier holds the ordered matcher list. Construction order is the
// documented precedence.
type Classifier struct {
	matchers     []matcher
	wallabagHost string
}

// New builds a classifier. wallabagHost may be empty, in which case
// wallabag view URLs classify as generic bookmarks.
func New(wallabagHost string) *Classifier {
	c := &Classifier{wallabagHost: normalizeHost(wallabagHost)}
	c.matchers = []matcher{
		{"youtube", c.matchYouTube},
		{"github", c.matchGitHub},
		{"reddit", c.matchReddit},
		{"hackernews", c.matchHackerNews},
		{"steam", c.matchSteam},
		{"google-search", c.matchGoogleSearch},
		{"wallabag", c.matchWallabag},
		{"freshrss", c.matchFreshRSS},
		{"bookmark", c.matchGenericWeb},
	}
	return c
}

// Classify resolves a raw reference to a platform and canonical id.
func (c *Classifier) Classify(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, apperr.Wrap(apperr.ErrInvalidReference, "classify", fmt.Errorf("empty reference"))
	}

	u := parseHTTPURL(raw)
	if u != nil {
		if inner := unwrapShareURL(u); inner != nil {
			return c.Classify(inner.String())
		}
	}

	for _, m := range c.matchers {
		if ref, ok := m.fn(raw, u); ok {
			return ref, nil
		}
	}
	return Ref{}, apperr.Wrap(apperr.ErrInvalidReference, "classify", fmt.Errorf("unrecognized reference %q", raw))
}

// parseHTTPURL returns a parsed URL only for absolute http(s) references.
func parseHTTPURL(raw string) *url.URL {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// unwrapShareURL peels youtube share/redirect wrappers (/redirect?...url=,
// /oembed?url=) down to the inner URL.
func unwrapShareURL(u *url.URL) *url.URL {
	if !isYouTubeHost(u.Hostname()) {
		return nil
	}
	if u.Path != "/redirect" && u.Path != "/oembed" {
		return nil
	}
	inner := u.Query().Get("url")
	if inner == "" {
		return nil
	}
	unescaped, err := url.QueryUnescape(inner)
	if err != nil {
		unescaped = inner
	}
	return parseHTTPURL(unescaped)
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

func isYouTubeHost(host string) bool {
	switch strings.ToLower(host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		return true
	}
	return false
}

func pathParts(u *url.URL) []string {
	return strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
}

func (c *Classifier) matchYouTube(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		// Bare 11-char video id. All-digit strings stay unclaimed: they
		// are ambiguous with item and app ids.
		if youtubeIDRe.MatchString(raw) && !digitsRe.MatchString(raw) {
			return Ref{Platform: models.PlatformYouTube, CanonicalID: raw}, true
		}
		return Ref{}, false
	}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		parts := pathParts(u)
		if len(parts) >= 1 && youtubeIDRe.MatchString(parts[0]) {
			return Ref{Platform: models.PlatformYouTube, CanonicalID: parts[0]}, true
		}
		return Ref{}, false
	}
	if !isYouTubeHost(host) {
		return Ref{}, false
	}
	if u.Path == "/watch" {
		if id := u.Query().Get("v"); youtubeIDRe.MatchString(id) {
			return Ref{Platform: models.PlatformYouTube, CanonicalID: id}, true
		}
	}
	if parts := pathParts(u); len(parts) == 2 && parts[0] == "shorts" && youtubeIDRe.MatchString(parts[1]) {
		return Ref{Platform: models.PlatformYouTube, CanonicalID: parts[1]}, true
	}
	return Ref{}, false
}

func (c *Classifier) matchGitHub(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		if ownerRepoRe.MatchString(raw) {
			return Ref{Platform: models.PlatformGitHub, CanonicalID: raw}, true
		}
		return Ref{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return Ref{}, false
	}
	parts := pathParts(u)
	if len(parts) < 2 || strings.HasPrefix(parts[0], ".") || strings.HasPrefix(parts[1], ".") {
		return Ref{}, false
	}
	return Ref{Platform: models.PlatformGitHub, CanonicalID: parts[0] + "/" + parts[1]}, true
}

func (c *Classifier) matchReddit(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		return Ref{}, false
	}
	switch strings.ToLower(u.Hostname()) {
	case "reddit.com", "www.reddit.com", "old.reddit.com":
	default:
		return Ref{}, false
	}
	parts := pathParts(u)
	if len(parts) < 4 || parts[0] != "r" || parts[2] != "comments" {
		return Ref{}, false
	}
	return Ref{
		Platform:    models.PlatformReddit,
		CanonicalID: parts[3],
		Meta:        map[string]string{"subreddit": parts[1]},
	}, true
}

func (c *Classifier) matchHackerNews(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		return Ref{}, false
	}
	if strings.ToLower(u.Hostname()) != "news.ycombinator.com" || u.Path != "/item" {
		return Ref{}, false
	}
	id := u.Query().Get("id")
	if !digitsRe.MatchString(id) {
		return Ref{}, false
	}
	return Ref{Platform: models.PlatformHackerNews, CanonicalID: id}, true
}

func (c *Classifier) matchSteam(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		return Ref{}, false
	}
	if strings.ToLower(u.Hostname()) != "store.steampowered.com" {
		return Ref{}, false
	}
	parts := pathParts(u)
	if len(parts) < 2 || parts[0] != "app" || !digitsRe.MatchString(parts[1]) {
		return Ref{}, false
	}
	return Ref{Platform: models.PlatformSteam, CanonicalID: parts[1]}, true
}

func (c *Classifier) matchGoogleSearch(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		return Ref{}, false
	}
	if !googleHostRe.MatchString(strings.ToLower(u.Hostname())) || u.Path != "/search" {
		return Ref{}, false
	}
	query := strings.Join(strings.Fields(u.Query().Get("q")), " ")
	if query == "" {
		return Ref{}, false
	}
	return Ref{
		Platform:    models.PlatformGoogleSearch,
		CanonicalID: query,
	}, true
}

func (c *Classifier) matchWallabag(raw string, u *url.URL) (Ref, bool) {
	if u == nil || c.wallabagHost == "" {
		return Ref{}, false
	}
	if strings.ToLower(u.Hostname()) != c.wallabagHost {
		return Ref{}, false
	}
	parts := pathParts(u)
	if len(parts) != 2 || parts[0] != "view" || !digitsRe.MatchString(parts[1]) {
		return Ref{}, false
	}
	return Ref{Platform: models.PlatformWallabag, CanonicalID: parts[1]}, true
}

func (c *Classifier) matchFreshRSS(raw string, u *url.URL) (Ref, bool) {
	if u != nil {
		return Ref{}, false
	}
	m := readerItemRe.FindStringSubmatch(raw)
	if m == nil {
		return Ref{}, false
	}
	return Ref{Platform: models.PlatformFreshRSS, CanonicalID: m[1]}, true
}

func (c *Classifier) matchGenericWeb(raw string, u *url.URL) (Ref, bool) {
	if u == nil {
		return Ref{}, false
	}
	norm := NormalizeURL(u)
	return Ref{
		Platform:    models.PlatformGenericWeb,
		CanonicalID: norm,
		Meta:        map[string]string{"url": norm},
	}, true
}

// NormalizeURL canonicalizes a bookmark URL: scheme and host lowercased,
// default port and fragment stripped, a lone trailing slash dropped.
func NormalizeURL(u *url.URL) string {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	host := strings.ToLower(out.Hostname())
	port := out.Port()
	if port != "" && !((out.Scheme == "http" && port == "80") || (out.Scheme == "https" && port == "443")) {
		host = host + ":" + port
	}
	out.Host = host
	out.Fragment = ""
	if out.Path == "/" && out.RawQuery == "" {
		out.Path = ""
	}
	return out.String()
}
