package parse

import (
	"context"
	"sync"

	"github.com/dtnitsch/capturemd/internal/common"
	"github.com/dtnitsch/capturemd/models"
)

// Job is one note to parse.
type Job struct {
	Note models.Note
}

// Result is the per-note outcome a worker reports back.
type Result struct {
	Item models.ItemResult
}

// worker pulls jobs until the channel closes. Failures are already
// recorded on the note by the dispatcher; the worker only shapes the
// summary entry.
func worker(ctx context.Context, id int, app *common.App, wg *sync.WaitGroup, jobs <-chan Job, results chan<- Result) {
	defer wg.Done()
	for job := range jobs {
		app.Logger.Debug("worker picked up note",
			"worker", id, "canonical_id", job.Note.CanonicalID)

		n, err := app.Dispatcher.Parse(ctx, job.Note)
		if err != nil {
			results <- Result{Item: common.FailureResult(n, err)}
			continue
		}
		results <- Result{Item: common.SuccessResult(n)}
	}
}

// Run parses the notes through a worker pool and collects the summary.
func Run(ctx context.Context, app *common.App, notes []models.Note, workers int) *models.BatchSummary {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan Job, len(notes))
	results := make(chan Result, len(notes))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go worker(ctx, w, app, &wg, jobs, results)
	}

	for _, n := range notes {
		jobs <- Job{Note: n}
	}
	close(jobs)

	wg.Wait()
	close(results)

	summary := &models.BatchSummary{Command: "parse"}
	for r := range results {
		summary.Add(r.Item)
	}
	return summary
}
