package common

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dtnitsch/capturemd/models"
)

var markdownLinkRe = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeReference cleans up copy-paste artifacts around a reference:
// surrounding whitespace, markdown link syntax, and stray punctuation.
func SanitizeReference(raw string) string {
	cleaned := strings.TrimSpace(raw)

	// "[click here](https://example.com)" -> "https://example.com"
	if m := markdownLinkRe.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	for _, ch := range []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"} {
		cleaned = strings.TrimSuffix(cleaned, ch)
	}
	for _, ch := range []string{"(", "[", "<", "\"", "'"} {
		cleaned = strings.TrimPrefix(cleaned, ch)
	}
	return strings.TrimSpace(cleaned)
}

// SuccessResult builds the per-item summary entry for a note that made
// it through.
func SuccessResult(n models.Note) models.ItemResult {
	return models.ItemResult{
		CanonicalID: n.CanonicalID,
		NoteID:      n.ID,
		Platform:    n.Platform,
		State:       n.State,
		Status:      "success",
	}
}

// FailureResult builds the per-item summary entry for a failed note.
func FailureResult(n models.Note, err error) models.ItemResult {
	return models.ItemResult{
		CanonicalID: n.CanonicalID,
		NoteID:      n.ID,
		Platform:    n.Platform,
		State:       n.State,
		Status:      "failed",
		FailureKind: n.FailureKind,
		Error:       err.Error(),
	}
}

// EmitSummary writes the batch summary to stdout in the requested
// format and returns the exit code the summary implies.
func EmitSummary(summary *models.BatchSummary, terse bool) int {
	if terse {
		for _, r := range summary.Results {
			line, err := json.Marshal(r.ToTerse())
			if err != nil {
				continue
			}
			fmt.Println(string(line))
		}
		return summary.ExitCode()
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal summary: %v\n", err)
		return 2
	}
	fmt.Println(string(out))
	return summary.ExitCode()
}
