package pattern

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"drfeedback/analyzers"
)

// Analyzer extracts one numeric fact with a single-group regular expression
// and compares it against a minimum.
type Analyzer struct {
	fact    string
	re      *regexp.Regexp
	minimum float64
}

func New(fact, expr string, minimum float64) (*Analyzer, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %s pattern: %w", fact, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("%s pattern %q must have exactly one capture group, has %d", fact, expr, re.NumSubexp())
	}
	return &Analyzer{fact: fact, re: re, minimum: minimum}, nil
}

func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	_ = ctx

	m := a.re.FindSubmatch(data)
	if m == nil {
		return []analyzers.Finding{analyzers.Error("could not determine %s", a.fact)}, nil
	}
	raw := string(m[1])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return []analyzers.Finding{analyzers.Error("could not determine %s: %q is not a number", a.fact, raw)}, nil
	}

	if v < a.minimum {
		return []analyzers.Finding{analyzers.Error("%s %s is below the supported minimum of %s", a.fact, raw, formatNumber(a.minimum))}, nil
	}
	return []analyzers.Finding{analyzers.Info("%s: %s", a.fact, raw)}, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
