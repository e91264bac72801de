package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"drfeedback/analyzers/marker"
)

//go:embed default_rules.yaml
var defaultRules []byte

var ErrInvalidRule = errors.New("invalid rule")

type Rules struct {
	Artifacts map[string]ArtifactRules `yaml:"artifacts"`
}

type ArtifactRules struct {
	EmptyMessage string       `yaml:"empty_message,omitempty"`
	Checks       []MarkerRule `yaml:"checks"`
}

// MarkerRule sets exactly one of Require or Forbid.
type MarkerRule struct {
	Require string `yaml:"require,omitempty"`
	Forbid  string `yaml:"forbid,omitempty"`
	Message string `yaml:"message"`
}

func ParseRules(b []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func LoadRules(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}
	r, err := ParseRules(b)
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// DefaultRules returns the embedded marker checks.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return r
}

func (r Rules) Validate() error {
	for name, ar := range r.Artifacts {
		if name == "" {
			return fmt.Errorf("%w: empty artifact name", ErrInvalidRule)
		}
		for i, c := range ar.Checks {
			if (c.Require == "") == (c.Forbid == "") {
				return fmt.Errorf("%w: %s check %d must set exactly one of require or forbid", ErrInvalidRule, name, i)
			}
			if c.Message == "" {
				return fmt.Errorf("%w: %s check %d has no message", ErrInvalidRule, name, i)
			}
		}
	}
	return nil
}

// Merge appends the checks of other after those of r. A non-empty
// empty_message in other replaces the one in r.
func (r Rules) Merge(other Rules) Rules {
	out := Rules{Artifacts: map[string]ArtifactRules{}}
	for name, ar := range r.Artifacts {
		out.Artifacts[name] = ArtifactRules{
			EmptyMessage: ar.EmptyMessage,
			Checks:       append([]MarkerRule(nil), ar.Checks...),
		}
	}
	for name, ar := range other.Artifacts {
		cur := out.Artifacts[name]
		if ar.EmptyMessage != "" {
			cur.EmptyMessage = ar.EmptyMessage
		}
		cur.Checks = append(cur.Checks, ar.Checks...)
		out.Artifacts[name] = cur
	}
	return out
}

func (r Rules) names() []string {
	names := make([]string, 0, len(r.Artifacts))
	for name := range r.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ar ArtifactRules) options() marker.Options {
	opts := marker.Options{EmptyMessage: ar.EmptyMessage}
	for _, c := range ar.Checks {
		if c.Forbid != "" {
			opts.Checks = append(opts.Checks, marker.Check{Marker: c.Forbid, Message: c.Message, Mode: marker.Forbid})
			continue
		}
		opts.Checks = append(opts.Checks, marker.Check{Marker: c.Require, Message: c.Message, Mode: marker.Require})
	}
	return opts
}
