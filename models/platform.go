package models

// Platform identifies where a captured reference came from. The set is
// closed: adding a platform means registering a matcher/fetcher pair, not
// touching the note lifecycle.
type Platform string

const (
	PlatformYouTube      Platform = "youtube"
	PlatformGitHub       Platform = "github"
	PlatformReddit       Platform = "reddit"
	PlatformHackerNews   Platform = "hn"
	PlatformSteam        Platform = "steam"
	PlatformGoogleSearch Platform = "google"
	PlatformPodcast      Platform = "podcast"
	PlatformGenericWeb   Platform = "bookmark"
	PlatformWallabag     Platform = "wallabag"
	PlatformFreshRSS     Platform = "freshrss"
)

// AllPlatforms lists every known platform in registration order.
var AllPlatforms = []Platform{
	PlatformYouTube,
	PlatformGitHub,
	PlatformReddit,
	PlatformHackerNews,
	PlatformSteam,
	PlatformGoogleSearch,
	PlatformWallabag,
	PlatformFreshRSS,
	PlatformPodcast,
	PlatformGenericWeb,
}

// NotesDir returns the per-platform subdirectory under the notes root.
// Wallabag and FreshRSS captures are bookmarks once parsed, so they share
// the bookmark directory.
func (p Platform) NotesDir() string {
	switch p {
	case PlatformYouTube:
		return "youtube"
	case PlatformGitHub:
		return "github"
	case PlatformReddit:
		return "reddit"
	case PlatformHackerNews:
		return "hn"
	case PlatformSteam:
		return "steam"
	case PlatformPodcast:
		return "podcast"
	default:
		return "bookmark"
	}
}

// Cacheable reports whether the platform has a media cache contract.
func (p Platform) Cacheable() bool {
	return p == PlatformYouTube || p == PlatformPodcast
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}
