package models

// ItemResult is the per-note outcome of a batch command.
type ItemResult struct {
	CanonicalID string   `json:"canonical_id" yaml:"canonical_id"`
	NoteID      string   `json:"note_id,omitempty" yaml:"note_id,omitempty"`
	Platform    Platform `json:"platform" yaml:"platform"`
	State       State    `json:"state" yaml:"state"`
	Status      string   `json:"status" yaml:"status"` // success, failed, skipped
	FailureKind string   `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchStats summarizes a whole batch run.
type BatchStats struct {
	Total            int     `json:"total" yaml:"total"`
	Succeeded        int     `json:"succeeded" yaml:"succeeded"`
	Failed           int     `json:"failed" yaml:"failed"`
	Skipped          int     `json:"skipped" yaml:"skipped"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
}

// BatchSummary is the structured output of a batch command run.
type BatchSummary struct {
	Command string       `json:"command" yaml:"command"`
	Status  string       `json:"status" yaml:"status"` // success, partial, failed
	Results []ItemResult `json:"results" yaml:"results"`
	Stats   BatchStats   `json:"stats" yaml:"stats"`
}

// Add records one item outcome and updates the counters.
func (s *BatchSummary) Add(r ItemResult) {
	s.Results = append(s.Results, r)
	s.Stats.Total++
	switch r.Status {
	case "success":
		s.Stats.Succeeded++
	case "skipped":
		s.Stats.Skipped++
	default:
		s.Stats.Failed++
	}
}

// Finish sets the overall status from the counters. The mapping drives
// the exit code: success=0, partial=1, failed=2.
func (s *BatchSummary) Finish(elapsed float64) {
	s.Stats.TotalTimeSeconds = elapsed
	switch {
	case s.Stats.Failed == 0:
		s.Status = "success"
	case s.Stats.Succeeded > 0 || s.Stats.Skipped > 0:
		s.Status = "partial"
	default:
		s.Status = "failed"
	}
}

// ExitCode returns the process exit status for this summary.
func (s *BatchSummary) ExitCode() int {
	switch s.Status {
	case "success":
		return 0
	case "partial":
		return 1
	default:
		return 2
	}
}

// ItemResultTerse is the token-optimized one-line-per-note format with
// abbreviated field names, for shell composition.
type ItemResultTerse struct {
	CanonicalID string `json:"c"`
	Platform    string `json:"pl"`
	State       string `json:"st"`
	Status      int    `json:"s"` // 0=success, 1=failed, 2=skipped
	Kind        string `json:"k,omitempty"`
	Error       string `json:"e,omitempty"`
}

// ToTerse converts a full item result to the terse shape.
func (r ItemResult) ToTerse() ItemResultTerse {
	status := 1
	switch r.Status {
	case "success":
		status = 0
	case "skipped":
		status = 2
	}
	return ItemResultTerse{
		CanonicalID: r.CanonicalID,
		Platform:    string(r.Platform),
		State:       string(r.State),
		Status:      status,
		Kind:        r.FailureKind,
		Error:       r.Error,
	}
}
