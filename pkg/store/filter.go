package store

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/capturemd/models"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Platform  models.Platform
	State     models.State
	Tag       string
	SeriesKey string
}

// Match reports whether a note passes the filter.
func (f Filter) Match(n models.Note) bool {
	if f.Platform != "" && n.Platform != f.Platform {
		return false
	}
	if f.State != "" && n.State != f.State {
		return false
	}
	if f.Tag != "" && !n.HasTag(f.Tag) {
		return false
	}
	if f.SeriesKey != "" && n.SeriesKey != f.SeriesKey {
		return false
	}
	return true
}

// ParseFilter parses an inline CLI filter expression.
//
// Syntax: comma-separated field:value pairs, e.g.
//
//	"platform:youtube,state:cached"
//	"tag:inbox"
//	"series:Some Channel"
func ParseFilter(expr string) (Filter, error) {
	var f Filter
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return f, nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, value, found := strings.Cut(part, ":")
		if !found || value == "" {
			return f, fmt.Errorf("invalid filter %q (expected field:value)", part)
		}
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "platform":
			p := models.Platform(strings.ToLower(value))
			if !p.Valid() {
				return f, fmt.Errorf("unknown platform %q", value)
			}
			f.Platform = p
		case "state":
			f.State = models.State(strings.ToLower(value))
		case "tag":
			f.Tag = value
		case "series":
			f.SeriesKey = value
		default:
			return f, fmt.Errorf("unknown filter field %q", field)
		}
	}
	return f, nil
}
