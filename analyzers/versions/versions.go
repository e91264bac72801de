package versions

import (
	"context"
	"fmt"
	"sort"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"drfeedback/analyzers"
)

type Options struct {
	Source Source
	// Exclude lists glob patterns of reference packages that are not expected
	// on the device.
	Exclude []string
	Logger  *zap.Logger
}

// Analyzer reconciles the locally installed packages against a reference
// manifest. Packages that are present with the expected version produce no
// finding.
type Analyzer struct {
	source  Source
	exclude []glob.Glob
	logger  *zap.Logger
}

func New(opts Options) (*Analyzer, error) {
	if opts.Source == nil {
		return nil, ErrNoManifest
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	a := &Analyzer{source: opts.Source, logger: opts.Logger}
	for _, p := range opts.Exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		a.exclude = append(a.exclude, g)
	}
	return a, nil
}

func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	installed := ParseInstalled(data)

	reference, err := a.source.Fetch(ctx)
	if err != nil {
		a.logger.Warn("reference manifest unavailable", zap.Error(err))
		return []analyzers.Finding{analyzers.Error("could not fetch reference manifest: %v", err)}, nil
	}

	names := make([]string, 0, len(reference))
	for name := range reference {
		if a.excluded(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []analyzers.Finding
	for _, name := range names {
		want := reference[name]
		have, ok := installed[name]
		switch {
		case !ok:
			findings = append(findings, analyzers.Error("package %s is not installed", name))
		case have != want:
			findings = append(findings, analyzers.Error("version mismatch for %s: installed %s, expected %s", name, have, want))
		}
	}
	return findings, nil
}

func (a *Analyzer) excluded(name string) bool {
	for _, g := range a.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}
