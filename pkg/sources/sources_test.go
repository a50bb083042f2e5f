package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtnitsch/capturemd/models"
)

func TestWallabagPullFiltersProcessedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v2/token":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok", "token_type": "bearer", "expires_in": 3600,
			})
		case "/api/entries.json":
			fmt.Fprint(w, `{
				"page": 1, "pages": 1,
				"_embedded": {"items": [
					{"id": 10, "title": "fresh", "url": "https://example.com/a", "tags": []},
					{"id": 11, "title": "done", "url": "https://example.com/b",
					 "tags": [{"label": "parsed"}]}
				]}
			}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	wb := NewWallabag(models.WallabagConfig{
		Host: srv.URL, ClientID: "id", ClientSecret: "secret",
		Username: "u", Password: "p", Action: "keep",
	})

	entries, err := wb.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 unprocessed entry, got %d", len(entries))
	}
	if entries[0].RemoteID != "10" || entries[0].Reference != "https://example.com/a" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if entries[0].Source != "wallabag" {
		t.Errorf("source = %q", entries[0].Source)
	}
}

func TestWallabagMarkProcessed(t *testing.T) {
	var gotMethod, gotPath, gotTags string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v2/token" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok", "token_type": "bearer", "expires_in": 3600,
			})
			return
		}
		gotMethod, gotPath = r.Method, r.URL.Path
		r.ParseForm()
		gotTags = r.PostForm.Get("tags")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	wb := NewWallabag(models.WallabagConfig{
		Host: srv.URL, ClientID: "id", ClientSecret: "secret",
		Username: "u", Password: "p",
	})

	if err := wb.MarkProcessed(context.Background(), "42", models.SourceActionKeep); err != nil {
		t.Fatalf("keep: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/entries/42/tags.json" || gotTags != "parsed" {
		t.Errorf("keep request: %s %s tags=%q", gotMethod, gotPath, gotTags)
	}

	if err := wb.MarkProcessed(context.Background(), "42", models.SourceActionDiscard); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/entries/42.json" {
		t.Errorf("discard request: %s %s", gotMethod, gotPath)
	}
}

func TestFreshRSSEntryRouting(t *testing.T) {
	f := NewFreshRSS(models.FreshRSSConfig{URL: "http://rss.local", Username: "u", Password: "p"})

	t.Run("labels become tags", func(t *testing.T) {
		entry, ok := f.entryFromItem(freshrssItem{
			ID:         "tag:google.com,2005:reader/item/0000000000000001",
			Title:      "a post",
			Categories: []string{"user/-/label/golang_news", "user/-/state/com.google/starred"},
			Canonical:  []struct{ Href string `json:"href"` }{{Href: "https://example.com/post"}},
		})
		if !ok {
			t.Fatal("entry dropped")
		}
		want := []string{"inbox", "golang", "news"}
		if len(entry.Tags) != len(want) {
			t.Fatalf("tags = %v, want %v", entry.Tags, want)
		}
		for i, tag := range want {
			if entry.Tags[i] != tag {
				t.Errorf("tags[%d] = %q, want %q", i, entry.Tags[i], tag)
			}
		}
		if !entry.CacheRequested {
			t.Error("news label should request caching")
		}
	})

	t.Run("captured items are skipped", func(t *testing.T) {
		_, ok := f.entryFromItem(freshrssItem{
			ID:         "tag:google.com,2005:reader/item/0000000000000002",
			Categories: []string{"user/-/label/captured"},
			Canonical:  []struct{ Href string `json:"href"` }{{Href: "https://example.com"}},
		})
		if ok {
			t.Error("captured item should be skipped")
		}
	})

	t.Run("hn comments link wins over story target", func(t *testing.T) {
		it := freshrssItem{
			ID:        "tag:google.com,2005:reader/item/0000000000000003",
			Title:     "Show HN: something",
			Canonical: []struct{ Href string `json:"href"` }{{Href: "https://project.example.com"}},
		}
		it.Origin.HTMLURL = "https://news.ycombinator.com/"
		it.Summary.Content = `<a href="https://news.ycombinator.com/item?id=39001234">Comments</a>`
		entry, ok := f.entryFromItem(it)
		if !ok {
			t.Fatal("entry dropped")
		}
		if entry.Reference != "https://news.ycombinator.com/item?id=39001234" {
			t.Errorf("reference = %q", entry.Reference)
		}
	})

	t.Run("podcast label yields seed", func(t *testing.T) {
		it := freshrssItem{
			ID:         "tag:google.com,2005:reader/item/0000000000000004",
			Title:      "Episode 12",
			Published:  1710000000,
			Categories: []string{"user/-/label/podcast"},
			Enclosure: []struct {
				Href string `json:"href"`
				Type string `json:"type"`
			}{{Href: "https://cdn.example.com/ep12.mp3", Type: "audio/mpeg"}},
		}
		it.Origin.Title = "Some Show"
		it.Summary.Content = "<p>Show   notes</p>"
		entry, ok := f.entryFromItem(it)
		if !ok {
			t.Fatal("entry dropped")
		}
		if entry.Podcast == nil {
			t.Fatal("expected podcast seed")
		}
		if entry.Podcast.Channel != "Some Show" {
			t.Errorf("channel = %q", entry.Podcast.Channel)
		}
		if entry.Podcast.AudioURL != "https://cdn.example.com/ep12.mp3" {
			t.Errorf("audio url = %q", entry.Podcast.AudioURL)
		}
		if entry.Podcast.Description != "Show notes" {
			t.Errorf("description = %q", entry.Podcast.Description)
		}
		if entry.PublishedAt == "" {
			t.Error("published date missing")
		}
	})
}

func TestFreshRSSMarkProcessed(t *testing.T) {
	var gotAdd, gotRemove, gotItem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprint(w, "SID=x\nLSID=y\nAuth=secret-token\n")
		case "/reader/api/0/token":
			fmt.Fprint(w, "write-token")
		case "/reader/api/0/edit-tag":
			if r.Header.Get("Authorization") != "GoogleLogin auth=secret-token" {
				t.Errorf("missing auth header")
			}
			r.ParseForm()
			gotAdd = r.PostForm.Get("a")
			gotRemove = r.PostForm.Get("r")
			gotItem = r.PostForm.Get("i")
			fmt.Fprint(w, "OK")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFreshRSS(models.FreshRSSConfig{URL: srv.URL, Username: "u", Password: "p"})

	id := "tag:google.com,2005:reader/item/00000000000000ab"
	if err := f.MarkProcessed(context.Background(), id, models.SourceActionKeep); err != nil {
		t.Fatalf("keep: %v", err)
	}
	if gotAdd != "user/-/label/captured" || gotItem != id {
		t.Errorf("keep: a=%q i=%q", gotAdd, gotItem)
	}

	if err := f.MarkProcessed(context.Background(), id, models.SourceActionDiscard); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if gotRemove != "user/-/state/com.google/starred" {
		t.Errorf("discard: r=%q", gotRemove)
	}
}
