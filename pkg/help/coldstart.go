package help

const ColdstartYAML = `# capturemd Quick Start

platforms:
  youtube: "watch/shorts/youtu.be URLs or bare 11-char video ids"
  github: "repo URLs or owner/repo"
  reddit: "thread URLs (subreddit recorded for the fetch)"
  hn: "news.ycombinator.com/item?id=..."
  steam: "store.steampowered.com/app/<id>"
  google: "google search URLs (query journaled to browser notes)"
  podcast: "feed enclosures via sync, or explicit --podcast flags"
  bookmark: "any other http(s) URL"

lifecycle:
  - "Bare -> Parsed (metadata fetched into frontmatter)"
  - "Parsed -> CachingRequested -> Cached (media downloaded)"
  - "any failure -> Failed (kind + message recorded, retriable)"
  - "retry returns Failed/Cached notes to Bare"

commands:
  capture_one: |
    capturemd capture "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  capture_and_parse: |
    capturemd capture --parse "https://github.com/golang/go"

  capture_parse_cache: |
    capturemd capture --parse --cache "dQw4w9WgXcQ"

  parse_pending: |
    capturemd parse --all

  sync_sources: |
    capturemd sync --all
    capturemd sync wallabag
    capturemd sync freshrss

  cache_media: |
    capturemd cache <note-id-or-canonical-id>
    capturemd cache reconcile youtube

  reindex_series: |
    capturemd reindex "Some Channel"
    capturemd reindex --all

  inspect: |
    capturemd list --filter state:failed
    capturemd list --filter platform:youtube,tag:inbox
    capturemd stats
    capturemd retry <note-id>

  ledger: |
    capturemd admin init
    capturemd admin backup /tmp/ledger.db
    capturemd admin verify

layout:
  - "notes: <share>/notes/resource/<platform>/<note-id>.md"
  - "browser journal: <share>/notes/browser_notes.md"
  - "videos: <media>/videos/yt/<channel>/<year>/<video-id>.mp4"
  - "podcasts: <media>/podcasts/<channel>/<note-id>.mp3"
  - "ledger: <share>/notes/.capturemd.db"

configuration:
  - "config file: ~/.config/capturemd/config.yaml (optional, env-expanded)"
  - "env: CAPTUREMD_SHARE_BASE, CAPTUREMD_MEDIA_BASE"
  - "wallabag: WALLABAG_HOST/CLIENT_ID/CLIENT_SECRET/USERNAME/PASSWORD"
  - "freshrss: FRESHRSS_URL/USERNAME/PASSWORD"

error_behavior:
  - "Unrecognized references: fail fast before any note is written"
  - "Per-item failures recorded on the note, batch keeps going"
  - "Exit codes: 0=success, 1=partial failure, 2=complete failure"
`
