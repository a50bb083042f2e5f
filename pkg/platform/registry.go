// Package platform maps each platform onto its contracts: a metadata
// fetcher and, for cacheable platforms, a media cacher. The dispatcher
// drives note lifecycle transitions around those contracts, so adding a
// platform means registering here and never touching the state machine.
package platform

import (
	"context"

	"github.com/dtnitsch/capturemd/models"
)

// Fetcher is the metadata fetch contract. It receives the whole note so
// platforms can read classifier extras (subreddit, source url), and
// returns either complete metadata or an error, never both.
type Fetcher interface {
	Fetch(ctx context.Context, n models.Note) (models.Metadata, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, n models.Note) (models.Metadata, error)

func (f FetcherFunc) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	return f(ctx, n)
}

// Cacher is the media cache contract.
type Cacher interface {
	Cache(ctx context.Context, n models.Note) (models.MediaAsset, error)
}

// Registry holds the per-platform contract bindings.
type Registry struct {
	fetchers map[models.Platform]Fetcher
	cachers  map[models.Platform]Cacher
}

func NewRegistry() *Registry {
	return &Registry{
		fetchers: map[models.Platform]Fetcher{},
		cachers:  map[models.Platform]Cacher{},
	}
}

func (r *Registry) RegisterFetcher(p models.Platform, f Fetcher) {
	r.fetchers[p] = f
}

func (r *Registry) RegisterCacher(p models.Platform, c Cacher) {
	r.cachers[p] = c
}

func (r *Registry) Fetcher(p models.Platform) (Fetcher, bool) {
	f, ok := r.fetchers[p]
	return f, ok
}

func (r *Registry) Cacher(p models.Platform) (Cacher, bool) {
	c, ok := r.cachers[p]
	return c, ok
}
