package diagnose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drfeedback/analyzers"
	"drfeedback/bundle"
	"drfeedback/report"
)

type State int

const (
	StateExtracting State = iota
	StateAnalyzing
	StateRendered
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateExtracting:
		return "extracting"
	case StateAnalyzing:
		return "analyzing"
	case StateRendered:
		return "rendered"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type Lookup interface {
	Lookup(name string) (analyzers.Analyzer, bool)
}

type Options struct {
	Registry         Lookup
	Format           report.Format
	Title            string
	IncludeArtifacts bool
	Workers          int
	Logger           *zap.Logger
}

type Result struct {
	ID       string
	State    State
	Report   report.Report
	Document report.Document
}

type Driver struct {
	opts Options
}

func New(opts Options) (*Driver, error) {
	if opts.Registry == nil {
		return nil, errors.New("diagnose: registry is required")
	}
	if opts.Format == "" {
		opts.Format = report.FormatHTML
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Driver{opts: opts}, nil
}

// Run diagnoses one bundle. Every call owns its artifacts, outcomes and
// aggregator, so a Driver may serve concurrent runs.
func (d *Driver) Run(ctx context.Context, r io.Reader) (Result, error) {
	res := Result{ID: uuid.NewString(), State: StateExtracting}
	log := d.opts.Logger.With(zap.String("report_id", res.ID))
	started := time.Now().UTC()

	artifacts, err := bundle.Extract(r)
	if err != nil {
		res.State = StateAborted
		log.Warn("bundle rejected", zap.Error(err))
		return res, err
	}

	res.State = StateAnalyzing
	log.Debug("bundle extracted", zap.Int("artifacts", len(artifacts)))

	outcomes := make([]report.Outcome, len(artifacts))
	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for i, a := range artifacts {
		i, a := i, a
		g.Go(func() error {
			outcomes[i] = report.Outcome{Artifact: a, Findings: d.inspect(ctx, log, a)}
			return nil
		})
	}
	_ = g.Wait()

	agg := report.NewAggregator(report.Options{
		ID:               res.ID,
		Title:            d.opts.Title,
		IncludeArtifacts: d.opts.IncludeArtifacts,
		GeneratedAt:      started,
	})
	for _, o := range outcomes {
		agg.Add(o)
	}

	doc, err := agg.Render(d.opts.Format)
	if err != nil {
		res.State = StateAborted
		return res, fmt.Errorf("render report: %w", err)
	}

	res.State = StateRendered
	res.Report = agg.Report()
	res.Document = doc

	log.Info("bundle diagnosed",
		zap.Int("artifacts", len(artifacts)),
		zap.Int("info", len(res.Report.Info)),
		zap.Int("warn", len(res.Report.Warn)),
		zap.Int("error", len(res.Report.Error)),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

func (d *Driver) inspect(ctx context.Context, log *zap.Logger, a bundle.Artifact) []analyzers.Finding {
	an, ok := d.opts.Registry.Lookup(a.Name)
	if !ok {
		return []analyzers.Finding{analyzers.Info("artifact not recognized: %s", a.Name)}
	}

	// A canceled run still renders; artifacts not yet inspected get the
	// same finding as a failed analyzer.
	if err := ctx.Err(); err != nil {
		log.Warn("artifact skipped", zap.String("artifact", a.Name), zap.Error(err))
		return []analyzers.Finding{analyzers.Error("could not inspect artifact: %s", a.Name)}
	}

	findings, err := invoke(ctx, an, a.Data)
	if err != nil {
		log.Warn("analyzer failed", zap.String("artifact", a.Name), zap.Error(err))
		return []analyzers.Finding{analyzers.Error("could not inspect artifact: %s", a.Name)}
	}
	return findings
}

func invoke(ctx context.Context, an analyzers.Analyzer, data []byte) (findings []analyzers.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings, err = nil, fmt.Errorf("analyzer panicked: %v", r)
		}
	}()
	return an.Inspect(ctx, data)
}

// WithFormat returns a driver that renders in f and otherwise shares d's
// options.
func (d *Driver) WithFormat(f report.Format) *Driver {
	c := *d
	c.opts.Format = f
	return &c
}
