package report

import (
	"fmt"
	"sync"
	"time"

	"drfeedback/analyzers"
)

type Options struct {
	ID               string
	Title            string
	IncludeArtifacts bool
	GeneratedAt      time.Time
}

// Aggregator collects outcomes in call order. Render may be called any
// number of times; it does not change the accumulated state.
type Aggregator struct {
	opts Options

	mu       sync.Mutex
	outcomes []Outcome
}

func NewAggregator(opts Options) *Aggregator {
	if opts.Title == "" {
		opts.Title = "Doctor Feedback report"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	return &Aggregator{opts: opts}
}

func (a *Aggregator) Add(o Outcome) {
	o.Findings = append([]analyzers.Finding(nil), o.Findings...)

	a.mu.Lock()
	a.outcomes = append(a.outcomes, o)
	a.mu.Unlock()
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}

// Report returns a snapshot with the three severity buckets flattened in
// artifact order.
func (a *Aggregator) Report() Report {
	a.mu.Lock()
	outcomes := append([]Outcome(nil), a.outcomes...)
	a.mu.Unlock()

	r := Report{
		ID:               a.opts.ID,
		Title:            a.opts.Title,
		GeneratedAt:      a.opts.GeneratedAt,
		IncludeArtifacts: a.opts.IncludeArtifacts,
		Outcomes:         outcomes,
	}
	for _, o := range outcomes {
		for _, f := range o.Findings {
			e := Entry{Artifact: o.Artifact.Name, Finding: f}
			switch f.Severity {
			case analyzers.SeverityInfo:
				r.Info = append(r.Info, e)
			case analyzers.SeverityWarn:
				r.Warn = append(r.Warn, e)
			default:
				r.Error = append(r.Error, e)
			}
		}
	}
	return r
}

func (a *Aggregator) Render(f Format) (Document, error) {
	r := a.Report()

	var (
		body []byte
		err  error
	)
	switch f {
	case FormatHTML:
		body, err = renderHTML(r)
	case FormatMarkdown:
		body = renderMarkdown(r)
	case FormatText:
		body = renderText(r)
	case FormatJSONL:
		body, err = renderJSONL(r)
	default:
		return Document{}, fmt.Errorf("unknown report format %q", f)
	}
	if err != nil {
		return Document{}, err
	}
	return Document{Format: f, Body: body}, nil
}
