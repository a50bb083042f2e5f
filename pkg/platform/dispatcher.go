package platform

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtnitsch/capturemd/models"
	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/store"
)

// Dispatcher runs fetch and cache contracts against notes and persists
// the resulting transitions. Every path through here leaves the note in
// a legal lifecycle state; failures are recorded on the note and
// returned, so batch callers can keep going.
type Dispatcher struct {
	registry *Registry
	store    store.Store
	logger   *slog.Logger
}

func NewDispatcher(r *Registry, s store.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: r, store: s, logger: logger}
}

// Parse fetches metadata and advances the note to Parsed. The merge is
// all-or-nothing: a failed fetch records the failure kind and leaves no
// partial metadata behind. Re-parsing a Parsed note refreshes the
// fetch-owned fields.
func (d *Dispatcher) Parse(ctx context.Context, n models.Note) (models.Note, error) {
	start := time.Now()

	f, ok := d.registry.Fetcher(n.Platform)
	if !ok {
		err := apperr.Wrap(apperr.ErrUnsupported, "parse", nil)
		return d.fail(ctx, n, err)
	}

	meta, err := f.Fetch(ctx, n)
	if err != nil {
		return d.fail(ctx, n, err)
	}

	n.ApplyMetadata(meta)
	if err := n.MarkParsed(); err != nil {
		return n, err
	}

	stored, err := d.store.Upsert(ctx, n)
	if err != nil {
		return n, err
	}

	d.logger.Debug("parsed note",
		"canonical_id", n.CanonicalID,
		"platform", n.Platform,
		"duration_ms", time.Since(start).Milliseconds())
	return stored, nil
}

// Cache downloads the note's media and advances it to Cached. A Parsed
// note passes through CachingRequested first and that intermediate state
// is persisted, so an interrupted download is visible and retriable.
func (d *Dispatcher) Cache(ctx context.Context, n models.Note) (models.Note, error) {
	c, ok := d.registry.Cacher(n.Platform)
	if !ok {
		err := apperr.Wrap(apperr.ErrUnsupported, "cache", nil)
		return d.fail(ctx, n, err)
	}

	if n.State == models.StateParsed {
		if err := n.RequestCaching(); err != nil {
			return n, err
		}
		stored, err := d.store.Upsert(ctx, n)
		if err != nil {
			return n, err
		}
		n = stored
	}

	asset, err := c.Cache(ctx, n)
	if err != nil {
		return d.fail(ctx, n, err)
	}

	if err := n.MarkCached(asset.LocalPath); err != nil {
		return n, err
	}
	if asset.Duration > 0 && n.Meta("duration") == "" {
		n.SetMeta("duration", strconv.Itoa(asset.Duration))
	}

	stored, err := d.store.Upsert(ctx, n)
	if err != nil {
		return n, err
	}

	d.logger.Info("cached media",
		"canonical_id", n.CanonicalID,
		"platform", n.Platform,
		"media_ref", asset.LocalPath)
	return stored, nil
}

// fail records a failure on the note and persists it. The original
// error is returned alongside the failed note.
func (d *Dispatcher) fail(ctx context.Context, n models.Note, cause error) (models.Note, error) {
	kind := apperr.Kind(cause)
	if err := n.MarkFailed(kind, cause.Error()); err != nil {
		// The note cannot legally fail from here (e.g. already Cached);
		// surface the original cause without touching it.
		return n, cause
	}
	if stored, err := d.store.Upsert(ctx, n); err == nil {
		n = stored
	} else {
		d.logger.Error("failed to persist failure state",
			"canonical_id", n.CanonicalID, "error", err)
	}

	d.logger.Warn("note failed",
		"canonical_id", n.CanonicalID,
		"platform", n.Platform,
		"kind", kind,
		"error", cause)
	return n, cause
}
