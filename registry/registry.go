// Package registry maps artifact names to the analyzers that understand them.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"drfeedback/analyzers"
	"drfeedback/analyzers/lines"
	"drfeedback/analyzers/marker"
	"drfeedback/analyzers/pattern"
	"drfeedback/analyzers/screenshot"
	"drfeedback/analyzers/structlog"
	"drfeedback/analyzers/versions"
)

const (
	KindMarker        = "marker"
	KindPattern       = "pattern"
	KindStructuredLog = "structured-log"
	KindVersions      = "version-reconciliation"
	KindLines         = "lines"
	KindScreenshot    = "screenshot"
	KindPassthrough   = "passthrough"
)

const (
	DefaultDisplayPattern  = `(\d+)x\d+ @`
	DefaultMinDisplayWidth = 1024
)

type Options struct {
	// Rules are merged after the embedded default rules.
	Rules           Rules
	DisplayPattern  string
	MinDisplayWidth float64
	StructLog       structlog.Fields
	// Manifest is the reference package source; nil leaves packages.txt as a
	// passthrough artifact.
	Manifest        versions.Source
	ManifestExclude []string
	Logger          *zap.Logger
}

type Entry struct {
	Artifact string
	Kinds    []string
	Analyzer analyzers.Analyzer
}

func (e Entry) Kind() string { return strings.Join(e.Kinds, "+") }

type Registry struct {
	entries map[string]Entry
}

func New(opts Options) (*Registry, error) {
	if opts.DisplayPattern == "" {
		opts.DisplayPattern = DefaultDisplayPattern
	}
	if opts.MinDisplayWidth == 0 {
		opts.MinDisplayWidth = DefaultMinDisplayWidth
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	parts := map[string][]part{}
	add := func(name, kind string, a analyzers.Analyzer) {
		parts[name] = append(parts[name], part{kind: kind, analyzer: a})
	}

	display, err := pattern.New("display resolution width", opts.DisplayPattern, opts.MinDisplayWidth)
	if err != nil {
		return nil, err
	}
	kanux, err := lines.New(
		lines.Field{Line: 2, Label: "Current Kanux Version"},
		lines.Field{Line: 1, Label: "Last updated on"},
	)
	if err != nil {
		return nil, err
	}

	add("app-logs-json.txt", KindStructuredLog, structlog.New(opts.StructLog))
	add("config.txt", KindPassthrough, analyzers.Passthrough)
	add("hdmi-info.txt", KindPattern, display)
	add("kanux_version.txt", KindLines, kanux)
	add("process.txt", KindPassthrough, analyzers.Passthrough)
	add("screenshot.png", KindScreenshot, screenshot.New())

	if opts.Manifest != nil {
		v, err := versions.New(versions.Options{
			Source:  opts.Manifest,
			Exclude: opts.ManifestExclude,
			Logger:  opts.Logger.Named("versions"),
		})
		if err != nil {
			return nil, err
		}
		add("packages.txt", KindVersions, v)
	} else {
		add("packages.txt", KindPassthrough, analyzers.Passthrough)
	}

	rules := DefaultRules().Merge(opts.Rules)
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	for _, name := range rules.names() {
		ar := rules.Artifacts[name]
		if len(ar.Checks) == 0 && ar.EmptyMessage == "" {
			continue
		}
		m, err := marker.New(ar.options())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, name, err)
		}
		add(name, KindMarker, m)
	}

	r := &Registry{entries: make(map[string]Entry, len(parts))}
	for name, ps := range parts {
		e := Entry{Artifact: name}
		as := make([]analyzers.Analyzer, 0, len(ps))
		for _, p := range ps {
			if p.kind == KindPassthrough && len(ps) > 1 {
				continue
			}
			e.Kinds = append(e.Kinds, p.kind)
			as = append(as, p.analyzer)
		}
		e.Analyzer = analyzers.Chain(as...)
		r.entries[name] = e
	}
	return r, nil
}

type part struct {
	kind     string
	analyzer analyzers.Analyzer
}

// Lookup matches the artifact name exactly.
func (r *Registry) Lookup(name string) (analyzers.Analyzer, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.Analyzer, true
}

func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Artifact < out[j].Artifact })
	return out
}
