// Package analyzers defines the contract every artifact analyzer implements
// and the findings they produce.
package analyzers

import (
	"context"
	"fmt"
)

// Severity is one of exactly three levels.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

var Severities = []Severity{SeverityInfo, SeverityWarn, SeverityError}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func Info(format string, args ...any) Finding {
	return Finding{Severity: SeverityInfo, Message: fmt.Sprintf(format, args...)}
}

func Warn(format string, args ...any) Finding {
	return Finding{Severity: SeverityWarn, Message: fmt.Sprintf(format, args...)}
}

func Error(format string, args ...any) Finding {
	return Finding{Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Analyzer inspects the raw payload of a single artifact.
//
// Malformed payloads the analyzer understands are reported as findings. A
// returned error means the analyzer could not inspect the payload at all.
type Analyzer interface {
	Inspect(ctx context.Context, data []byte) ([]Finding, error)
}

// Func adapts an ordinary function to the Analyzer interface.
type Func func(ctx context.Context, data []byte) ([]Finding, error)

func (f Func) Inspect(ctx context.Context, data []byte) ([]Finding, error) {
	return f(ctx, data)
}

// Passthrough recognizes an artifact without reporting anything about it.
var Passthrough Analyzer = Func(func(context.Context, []byte) ([]Finding, error) {
	return nil, nil
})

type chain []Analyzer

// Chain runs analyzers in order and concatenates their findings.
func Chain(as ...Analyzer) Analyzer {
	if len(as) == 1 {
		return as[0]
	}
	return chain(as)
}

func (c chain) Inspect(ctx context.Context, data []byte) ([]Finding, error) {
	var out []Finding
	for _, a := range c {
		f, err := a.Inspect(ctx, data)
		if err != nil {
			return nil, err
		}
		out = append(out, f...)
	}
	return out, nil
}

// Count returns the number of findings with the given severity.
func Count(findings []Finding, s Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}
