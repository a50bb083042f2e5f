// Package sources implements the inbox source contract: remote queues
// (wallabag, freshrss) that feed references into the capture pipeline
// and get told once a note has been made from each entry.
package sources

import (
	"context"

	"github.com/dtnitsch/capturemd/models"
)

// Source is one remote inbox.
type Source interface {
	Name() string

	// Pull returns the current unprocessed entries. Pull never mutates
	// the remote side; MarkProcessed does.
	Pull(ctx context.Context) ([]models.RemoteInboxEntry, error)

	// MarkProcessed tells the source an entry's note reached at least
	// Parsed. keep tags the entry as processed; discard removes it.
	MarkProcessed(ctx context.Context, remoteID string, action models.SourceAction) error
}
