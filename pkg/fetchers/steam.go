package fetchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/fetcher"
)

// Steam fetches store metadata from the appdetails endpoint. The
// storefront rejects unknown user agents, so requests go out looking
// like a browser.
type Steam struct {
	client *fetcher.Client
}

func NewSteam(client *fetcher.Client) *Steam {
	return &Steam{client: client}
}

type steamApp struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	HeaderImage      string   `json:"header_image"`
	Developers       []string `json:"developers"`
	Publishers       []string `json:"publishers"`
	ReleaseDate      struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Metacritic struct {
		Score int `json:"score"`
	} `json:"metacritic"`
	Genres []struct {
		Description string `json:"description"`
	} `json:"genres"`
}

// steamDateLayouts backs up dateparse for the storefront's locale
// formats ("14 Nov, 2022", "Nov 14, 2022").
var steamDateLayouts = []string{"2 Jan, 2006", "Jan 2, 2006", "2006"}

func (f *Steam) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	detailsURL := "https://store.steampowered.com/api/appdetails?appids=" + n.CanonicalID + "&l=en"
	headers := map[string]string{"User-Agent": fetcher.BrowserUserAgent}

	var resp map[string]struct {
		Success bool     `json:"success"`
		Data    steamApp `json:"data"`
	}
	if err := f.client.GetJSON(ctx, detailsURL, headers, &resp); err != nil {
		return models.Metadata{}, err
	}
	entry, ok := resp[n.CanonicalID]
	if !ok || !entry.Success {
		return models.Metadata{}, apperr.Wrap(apperr.ErrNotFound,
			"steam: fetch "+n.CanonicalID, fmt.Errorf("appdetails reported failure"))
	}
	app := entry.Data

	meta := models.Metadata{
		Title:     app.Name,
		SourceURL: "https://store.steampowered.com/app/" + n.CanonicalID,
		Extra:     map[string]string{},
	}
	if app.ShortDescription != "" {
		meta.Extra["description"] = app.ShortDescription
	}
	if len(app.Developers) > 0 {
		meta.Author = app.Developers[0]
		meta.Extra["developers"] = strings.Join(app.Developers, ", ")
	}
	if len(app.Publishers) > 0 {
		meta.Extra["publishers"] = strings.Join(app.Publishers, ", ")
	}
	if app.Metacritic.Score > 0 {
		meta.Extra["metacritic"] = fmt.Sprint(app.Metacritic.Score)
	}
	if len(app.Genres) > 0 {
		genres := make([]string, 0, len(app.Genres))
		for _, g := range app.Genres {
			genres = append(genres, g.Description)
		}
		meta.Extra["genres"] = strings.Join(genres, ", ")
	}
	if !app.ReleaseDate.ComingSoon {
		if t, ok := parseSteamDate(app.ReleaseDate.Date); ok {
			meta.PublishedAt = t.Format("2006-01-02")
		}
	}
	if app.HeaderImage != "" {
		meta.Body = fmt.Sprintf("\n![banner](%s)\n", app.HeaderImage)
	}
	return meta, nil
}

func parseSteamDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t, true
	}
	for _, layout := range steamDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
