package fetchers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/capturemd/models"
)

const browserNotesHeader = "# Browser Notes\n\n"

// GoogleSearch journals search queries into the browser notes file in
// addition to the note itself, so searches show up in the daily review
// stream.
type GoogleSearch struct {
	journalPath string
	now         func() time.Time
}

func NewGoogleSearch(journalPath string) *GoogleSearch {
	return &GoogleSearch{journalPath: journalPath, now: time.Now}
}

func (f *GoogleSearch) Fetch(ctx context.Context, n models.Note) (models.Metadata, error) {
	query := n.CanonicalID
	if err := f.appendEntry(query); err != nil {
		return models.Metadata{}, err
	}
	return models.Metadata{
		Title: query,
		Tags:  []string{"search"},
	}, nil
}

// appendEntry adds one journal line, creating the file with its header
// on first use.
func (f *GoogleSearch) appendEntry(query string) error {
	if _, err := os.Stat(f.journalPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(f.journalPath), 0o755); err != nil {
			return fmt.Errorf("google: create journal dir: %w", err)
		}
		if err := os.WriteFile(f.journalPath, []byte(browserNotesHeader), 0o644); err != nil {
			return fmt.Errorf("google: create journal: %w", err)
		}
	}

	file, err := os.OpenFile(f.journalPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("google: open journal: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("- [*] %s [tag:: inbox] [date:: %s]\n",
		query, f.now().Format("2006-01-02"))
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("google: append journal: %w", err)
	}
	return nil
}
