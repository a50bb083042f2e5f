// Package webpage extracts bookmark metadata from arbitrary web pages:
// title and description via goquery, a readable excerpt via
// go-readability, and the page language via lingua.
package webpage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Extraction is everything a generic web page yields for a note header.
type Extraction struct {
	Title       string
	Description string
	Author      string
	SiteName    string
	Published   string // YYYY-MM-DD when the page declares it
	Excerpt     string
	Thumbnail   string
	Language    string // ISO 639-1
}

// Extract pulls metadata out of fetched HTML.
func Extract(html []byte, rawURL string) (Extraction, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Extraction{}, fmt.Errorf("webpage: parse url %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return Extraction{}, fmt.Errorf("webpage: parse html: %w", err)
	}

	ex := Extraction{
		Title:       normalizeText(doc.Find("title").First().Text()),
		Description: metaContent(doc, `meta[name="description"]`, `meta[property="og:description"]`),
		Thumbnail:   metaContent(doc, `meta[property="og:image"]`),
	}

	// Let go-readability find the main content; its metadata beats raw
	// tag scraping when both disagree.
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(string(html)), parsedURL)
	if err == nil {
		if ex.Title == "" {
			ex.Title = normalizeText(article.Title)
		}
		ex.Author = normalizeText(article.Byline)
		ex.SiteName = normalizeText(article.SiteName)
		ex.Excerpt = normalizeText(article.Excerpt)
		if ex.Description == "" {
			ex.Description = ex.Excerpt
		}
		if article.PublishedTime != nil {
			ex.Published = article.PublishedTime.Format("2006-01-02")
		}
		if lang, ok := DetectLanguage(article.TextContent); ok {
			ex.Language = lang
		}
	}

	if ex.Title == "" {
		ex.Title = parsedURL.Host
	}
	return ex, nil
}

// metaContent returns the first non-empty content attribute among the
// given selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := normalizeText(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
