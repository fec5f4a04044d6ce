package runner

import (
	"go.uber.org/zap"

	"github.com/klytics/chojson/internal/audit"
	"github.com/klytics/chojson/internal/config"
)

// FromConfig builds a runner and a job template from the loaded settings.
// Callers override Source, Sheet, Output and DryRun from their flags.
func FromConfig(cfg *config.Config, logger *zap.Logger, command string) (*Runner, Job, error) {
	layout, err := cfg.ExtractLayout()
	if err != nil {
		return nil, Job{}, err
	}

	r := New(logger, audit.NewLogger(cfg.Audit.Path, cfg.Audit.Enabled))
	job := Job{
		Command: command,
		Source:  cfg.Source.Path,
		Sheet:   cfg.Source.Sheet,
		Output:  cfg.Output.Path,
		Layout:  layout,
	}
	return r, job, nil
}
