package lines

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"drfeedback/analyzers"
)

// Field names a 1-based line of the payload.
type Field struct {
	Line  int
	Label string
}

type Analyzer struct {
	fields []Field
}

func New(fields ...Field) (*Analyzer, error) {
	for _, f := range fields {
		if f.Line < 1 {
			return nil, fmt.Errorf("field %q: line numbers start at 1", f.Label)
		}
	}
	return &Analyzer{fields: fields}, nil
}

// Inspect reports each field as an Info finding. A payload too short to hold
// a field cannot be inspected.
func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	_ = ctx

	text := strings.TrimRight(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n")
	var all []string
	if text != "" {
		all = strings.Split(text, "\n")
	}

	findings := make([]analyzers.Finding, 0, len(a.fields))
	for _, f := range a.fields {
		if f.Line > len(all) {
			return nil, fmt.Errorf("%s: payload has %d lines, need line %d", f.Label, len(all), f.Line)
		}
		findings = append(findings, analyzers.Info("%s: %s", f.Label, strings.TrimSpace(all[f.Line-1])))
	}
	return findings, nil
}
