package runner

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one workbook in a batch.
type BatchItem struct {
	Source  string  `json:"source"`
	Output  string  `json:"output,omitempty"`
	Status  string  `json:"status"` // "ok", "error"
	Records int     `json:"records"`
	Error   string  `json:"error,omitempty"`
	Result  *Result `json:"-"`
}

// BatchOutput names the JSON file for a workbook: cho_202501.xlsx becomes
// cho_202501.json, in outDir if set, otherwise next to the workbook.
func BatchOutput(source, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".json"
	if outDir == "" {
		return filepath.Join(filepath.Dir(source), base)
	}
	return filepath.Join(outDir, base)
}

// RunBatch runs one job per source with at most concurrency running at once.
// A failed workbook does not stop the others. Items come back in source
// order; done is called as each finishes and must be safe for concurrent use.
func (r *Runner) RunBatch(ctx context.Context, tmpl Job, sources []string, outDir string, concurrency int, done func(BatchItem)) []BatchItem {
	r.defaults()
	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]BatchItem, len(sources))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			job := tmpl
			job.Source = src
			if !job.DryRun {
				job.Output = BatchOutput(src, outDir)
			}

			item := BatchItem{Source: src, Status: "ok"}
			res, err := r.Run(ctx, job)
			if err != nil {
				item.Status = "error"
				item.Error = err.Error()
			} else {
				item.Output = res.Output
				item.Records = res.Stats.Kept
				item.Result = res
			}
			items[i] = item
			if done != nil {
				done(item)
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}
