package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/RyanBlaney/fkw-sonar/logging"
)

// Summary counts what a manifest run did
type Summary struct {
	Total     int `json:"total"`
	Skipped   int `json:"skipped"` // already inferred
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RunManifest processes every entry of m that is not yet inferred, writing
// images to outputDir. Per-file failures are recorded in the entry and do
// not stop the run; only cancellation does.
func (r *Runner) RunManifest(ctx context.Context, m *Manifest, outputDir string) (Summary, error) {
	return r.runManifest(ctx, m, outputDir, nil)
}

// RunManifestFile is RunManifest on the CSV at path, rewriting the file
// after every entry so an interrupted run resumes where it stopped.
func (r *Runner) RunManifestFile(ctx context.Context, path, outputDir string) (Summary, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return Summary{}, err
	}
	return r.runManifest(ctx, m, outputDir, func() error {
		return WriteManifest(m, path)
	})
}

func (r *Runner) runManifest(ctx context.Context, m *Manifest, outputDir string, checkpoint func() error) (Summary, error) {
	logger := r.logger.WithFields(logging.Fields{
		"function": "RunManifest",
		"workers":  r.workers,
	})

	pending := m.Pending()
	summary := Summary{
		Total:   len(m.Entries),
		Skipped: len(m.Entries) - len(pending),
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		saveErrs []error
	)
	jobs := make(chan int)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := r.process(ctx, m.Entries[i], outputDir)

				mu.Lock()
				m.Entries[i] = entry
				summary.Processed++
				if !entry.Inferred {
					summary.Failed++
				}
				if checkpoint != nil {
					if err := checkpoint(); err != nil {
						saveErrs = append(saveErrs, err)
					}
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, i := range pending {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info("Manifest run finished", logging.Fields{
		"total":     summary.Total,
		"skipped":   summary.Skipped,
		"processed": summary.Processed,
		"failed":    summary.Failed,
	})

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, errors.Join(saveErrs...)
}

// process runs one entry and returns its updated flags
func (r *Runner) process(ctx context.Context, entry Entry, outputDir string) Entry {
	outcome, err := r.Run(ctx, entry.Path, outputDir)

	entry.Transformed = outcome.Transform != nil
	entry.Inferred = outcome.Report != nil && err == nil
	entry.Detections = outcome.Detections()
	entry.Message = "ok"
	if err != nil {
		entry.Message = err.Error()
		r.logger.Warn("Recording failed", logging.Fields{
			"source": entry.Path,
			"error":  err.Error(),
		})
	}
	return entry
}
