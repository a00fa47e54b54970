package agent

import (
	"io"
	"log/slog"
	"time"
)

// Defaults for prompt context sizes and sampling.
const (
	DefaultPlanTextPrefix = 2000
	DefaultGenTextPrefix  = 1500
	DefaultPlanSampleRows = 3
	DefaultGenSampleRows  = 5
	DefaultCodePrefix     = 1000
)

// LLM call settings per operation.
const (
	planTemperature    = 0.7
	planMaxTokens      = 2048
	genTemperature     = 0.4
	genMaxTokens       = 4096
	reflectTemperature = 0.8
	reflectMaxTokens   = 2048
)

// Options tunes the components. Zero values select the defaults.
type Options struct {
	Language       Language
	PlanTextPrefix int
	GenTextPrefix  int
	PlanSampleRows int
	GenSampleRows  int
	CodePrefix     int

	// Execute enables running candidates against the sample document.
	Execute     bool
	ExecTimeout time.Duration

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Language.EntryPoint == "" {
		o.Language = Python
	}
	o.PlanTextPrefix = orDefault(o.PlanTextPrefix, DefaultPlanTextPrefix)
	o.GenTextPrefix = orDefault(o.GenTextPrefix, DefaultGenTextPrefix)
	o.PlanSampleRows = orDefault(o.PlanSampleRows, DefaultPlanSampleRows)
	o.GenSampleRows = orDefault(o.GenSampleRows, DefaultGenSampleRows)
	o.CodePrefix = orDefault(o.CodePrefix, DefaultCodePrefix)
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
