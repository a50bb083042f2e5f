// Package models defines the data structures shared across the capture
// pipeline: notes, platforms, fetch payloads, configuration, summaries.
package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI needs: base directories, fetch tuning,
// and sync source credentials. Values come from an optional YAML file with
// env expansion, on top of env-driven defaults.
type Config struct {
	ShareBase        string        `yaml:"share_base"`
	MediaBase        string        `yaml:"media_base"`
	Workers          int           `yaml:"workers"`
	FetchTimeoutSecs int           `yaml:"fetch_timeout_secs"`
	CacheTTLMins     int           `yaml:"cache_ttl_mins"`
	Sources          SourcesConfig `yaml:"sources"`
}

type SourcesConfig struct {
	Wallabag WallabagConfig `yaml:"wallabag"`
	FreshRSS FreshRSSConfig `yaml:"freshrss"`
}

// WallabagConfig covers both the sync source and push-back of bookmarks.
type WallabagConfig struct {
	Host         string `yaml:"host"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Action       string `yaml:"action"` // keep | discard
}

type FreshRSSConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Action   string `yaml:"action"` // keep | discard
}

// Enabled reports whether the source has enough credentials to be used.
func (w WallabagConfig) Enabled() bool {
	return w.Host != "" && w.ClientID != "" && w.Username != ""
}

func (f FreshRSSConfig) Enabled() bool {
	return f.URL != "" && f.Username != ""
}

func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.ShareBase, validation.Required),
		validation.Field(&c.MediaBase, validation.Required),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(32)),
		validation.Field(&c.FetchTimeoutSecs, validation.Min(1)),
		validation.Field(&c.CacheTTLMins, validation.Min(0)),
	); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	return nil
}

func (s SourcesConfig) Validate() error {
	if s.Wallabag.Enabled() {
		if err := validation.ValidateStruct(&s.Wallabag,
			validation.Field(&s.Wallabag.ClientSecret, validation.Required),
			validation.Field(&s.Wallabag.Password, validation.Required),
			validation.Field(&s.Wallabag.Action, validation.Required, validation.In("keep", "discard")),
		); err != nil {
			return fmt.Errorf("wallabag: %w", err)
		}
	}
	if s.FreshRSS.Enabled() {
		if err := validation.ValidateStruct(&s.FreshRSS,
			validation.Field(&s.FreshRSS.Password, validation.Required),
			validation.Field(&s.FreshRSS.Action, validation.Required, validation.In("keep", "discard")),
		); err != nil {
			return fmt.Errorf("freshrss: %w", err)
		}
	}
	return nil
}

// NewDefaultConfig builds the config the standard layout implies:
// notes under the share base, media under the media base, credentials
// from the environment.
func NewDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	share := os.Getenv("CAPTUREMD_SHARE_BASE")
	if share == "" {
		share = filepath.Join(home, "share")
	}
	media := os.Getenv("CAPTUREMD_MEDIA_BASE")
	if media == "" {
		media = filepath.Join(home, "Media")
	}
	return &Config{
		ShareBase:        share,
		MediaBase:        media,
		Workers:          3,
		FetchTimeoutSecs: 10,
		CacheTTLMins:     60,
		Sources: SourcesConfig{
			Wallabag: WallabagConfig{
				Host:         os.Getenv("WALLABAG_HOST"),
				ClientID:     os.Getenv("WALLABAG_CLIENT_ID"),
				ClientSecret: os.Getenv("WALLABAG_CLIENT_SECRET"),
				Username:     os.Getenv("WALLABAG_USERNAME"),
				Password:     os.Getenv("WALLABAG_PASSWORD"),
				Action:       "keep",
			},
			FreshRSS: FreshRSSConfig{
				URL:      os.Getenv("FRESHRSS_URL"),
				Username: os.Getenv("FRESHRSS_USERNAME"),
				Password: os.Getenv("FRESHRSS_PASSWORD"),
				Action:   "keep",
			},
		},
	}
}

// LoadConfig reads the YAML config at path over the defaults. A missing
// file is not an error: the defaults alone are a working setup. Env vars
// inside the file ($VAR / ${VAR}) are expanded before unmarshal.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path == "" {
		confDir, err := os.UserConfigDir()
		if err == nil {
			path = filepath.Join(confDir, "capturemd", "config.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Derived paths for the fixed notes/media layout.

// NotesRoot is where platform note directories live.
func (c *Config) NotesRoot() string {
	return filepath.Join(c.ShareBase, "notes", "resource")
}

// BrowserNotesPath is the journal google searches append to.
func (c *Config) BrowserNotesPath() string {
	return filepath.Join(c.ShareBase, "notes", "browser_notes.md")
}

// VideoCacheDir holds cached youtube video assets.
func (c *Config) VideoCacheDir() string {
	return filepath.Join(c.MediaBase, "videos", "yt")
}

// PodcastCacheDir holds cached podcast audio.
func (c *Config) PodcastCacheDir() string {
	return filepath.Join(c.MediaBase, "podcasts")
}

// LedgerPath is the sqlite ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.ShareBase, "notes", ".capturemd.db")
}
