// Package runner wires the workbook reader, the extractor and the document
// writer into one extraction run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klytics/chojson/internal/audit"
	"github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
	"github.com/klytics/chojson/internal/output"
)

// SourceFunc loads a sheet as a grid.
type SourceFunc func(path, sheet string) (*grid.Grid, error)

// SinkFunc persists a document to a named target.
type SinkFunc func(path string, doc []extract.Record) error

// Job describes one extraction.
type Job struct {
	Command string
	Source  string
	Sheet   string
	Output  string
	Layout  extract.Layout
	DryRun  bool
}

// Result is what a successful run produced.
type Result struct {
	RunID    string           `json:"run_id"`
	Source   string           `json:"source"`
	Sheet    string           `json:"sheet"`
	Output   string           `json:"output,omitempty"`
	Records  []extract.Record `json:"-"`
	Stats    extract.Stats    `json:"stats"`
	Written  bool             `json:"written"`
	Duration time.Duration    `json:"duration_ns"`
}

// Runner executes jobs. Zero-value collaborators default to the xlsx reader
// and the atomic JSON writer.
type Runner struct {
	Logger *zap.Logger
	Audit  *audit.Logger
	Load   SourceFunc
	Write  SinkFunc
	Now    func() time.Time
}

// New creates a runner with the default collaborators.
func New(logger *zap.Logger, auditLog *audit.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger: logger,
		Audit:  auditLog,
		Load:   xlsx.LoadGrid,
		Write:  output.WriteDocument,
		Now:    time.Now,
	}
}

// Run loads the sheet, extracts the records and writes the document. Nothing
// is written unless every earlier stage succeeded.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	r.defaults()
	start := r.Now()
	res := &Result{
		RunID:  uuid.NewString(),
		Source: job.Source,
		Sheet:  job.Sheet,
	}
	log := r.Logger.With(zap.String("run_id", res.RunID))

	err := r.run(ctx, log, job, res)
	res.Duration = r.Now().Sub(start)

	entry := audit.Entry{
		RunID:      res.RunID,
		Timestamp:  start,
		Command:    job.Command,
		Source:     job.Source,
		Sheet:      job.Sheet,
		Records:    res.Stats.Kept,
		Dropped:    res.Stats.Dropped,
		OK:         err == nil,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Written {
		entry.Output = job.Output
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if auditErr := r.Audit.Log(ctx, entry); auditErr != nil {
		log.Warn("audit log failed", zap.Error(auditErr))
	}

	if err != nil {
		log.Info("extraction failed", zap.Error(err), zap.Duration("elapsed", res.Duration))
		return nil, err
	}
	log.Info("extraction finished",
		zap.Int("records", res.Stats.Kept),
		zap.Bool("written", res.Written),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, job Job, res *Result) error {
	log.Debug("loading sheet", zap.String("source", job.Source), zap.String("sheet", job.Sheet))
	g, err := r.Load(job.Source, job.Sheet)
	if err != nil {
		return err
	}
	log.Debug("sheet loaded", zap.Int("rows", g.Len()), zap.Int("width", g.Width))

	if err := ctx.Err(); err != nil {
		return err
	}

	records, stats, err := extract.ExtractWithStats(g, job.Layout)
	if err != nil {
		return fmt.Errorf("could not extract records from %s: %w", job.Source, err)
	}
	res.Records = records
	res.Stats = stats
	log.Debug("records extracted",
		zap.Int("rows_scanned", stats.RowsScanned),
		zap.Int("rows_skipped", stats.RowsSkipped),
		zap.Int("built", stats.Built),
		zap.Int("kept", stats.Kept),
		zap.Any("dropped", stats.Dropped))

	if job.DryRun || job.Output == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.Write(job.Output, records); err != nil {
		return err
	}
	res.Output = job.Output
	res.Written = true
	log.Debug("document written", zap.String("output", job.Output))
	return nil
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.Load == nil {
		r.Load = xlsx.LoadGrid
	}
	if r.Write == nil {
		r.Write = output.WriteDocument
	}
	if r.Now == nil {
		r.Now = time.Now
	}
}
