package marker

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"drfeedback/analyzers"
)

type Mode int

const (
	Require Mode = iota
	Forbid
)

func (m Mode) String() string {
	if m == Forbid {
		return "forbid"
	}
	return "require"
}

type Check struct {
	Marker  string
	Message string
	Mode    Mode
}

type Options struct {
	Checks []Check
	// EmptyMessage, when set, is reported instead of running the checks on an
	// empty payload.
	EmptyMessage string
}

type Analyzer struct {
	opts Options
}

func New(opts Options) (*Analyzer, error) {
	if len(opts.Checks) == 0 && opts.EmptyMessage == "" {
		return nil, errors.New("marker analyzer needs at least one check")
	}
	for i, c := range opts.Checks {
		if c.Marker == "" {
			return nil, fmt.Errorf("check %d: empty marker", i)
		}
		if c.Message == "" {
			return nil, fmt.Errorf("check %d (%q): empty message", i, c.Marker)
		}
	}
	return &Analyzer{opts: opts}, nil
}

func (a *Analyzer) Checks() []Check {
	return append([]Check(nil), a.opts.Checks...)
}

func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	_ = ctx

	if a.opts.EmptyMessage != "" && len(bytes.TrimSpace(data)) == 0 {
		return []analyzers.Finding{analyzers.Warn("%s", a.opts.EmptyMessage)}, nil
	}

	var findings []analyzers.Finding
	for _, c := range a.opts.Checks {
		found := containsLine(data, []byte(c.Marker))
		if (c.Mode == Require && !found) || (c.Mode == Forbid && found) {
			findings = append(findings, analyzers.Warn("%s", c.Message))
		}
	}
	return findings, nil
}

// containsLine searches line by line so a marker never matches across a line
// break.
func containsLine(data, marker []byte) bool {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if bytes.Contains(line, marker) {
			return true
		}
	}
	return false
}
