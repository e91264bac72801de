package structlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"drfeedback/analyzers"
)

const parseFailure = "could not parse structured log"

type Fields struct {
	LevelKey     string
	ComponentKey string
	MessageKey   string
	ErrorLevel   string
}

func DefaultFields() Fields {
	return Fields{
		LevelKey:     "level",
		ComponentKey: "app",
		MessageKey:   "message",
		ErrorLevel:   "error",
	}
}

type Analyzer struct {
	fields Fields
}

func New(fields Fields) *Analyzer {
	def := DefaultFields()
	if fields.LevelKey == "" {
		fields.LevelKey = def.LevelKey
	}
	if fields.ComponentKey == "" {
		fields.ComponentKey = def.ComponentKey
	}
	if fields.MessageKey == "" {
		fields.MessageKey = def.MessageKey
	}
	if fields.ErrorLevel == "" {
		fields.ErrorLevel = def.ErrorLevel
	}
	return &Analyzer{fields: fields}
}

type record map[string]any

func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	_ = ctx

	records, err := parse(data)
	if err != nil {
		return []analyzers.Finding{analyzers.Error("%s: %v", parseFailure, err)}, nil
	}

	var findings []analyzers.Finding
	for _, r := range records {
		if str(r[a.fields.LevelKey]) != a.fields.ErrorLevel {
			continue
		}
		component := str(r[a.fields.ComponentKey])
		if component == "" {
			component = "unknown component"
		}
		if msg := str(r[a.fields.MessageKey]); msg != "" {
			findings = append(findings, analyzers.Error("%s reported an error: %s", component, msg))
		} else {
			findings = append(findings, analyzers.Error("%s reported an error", component))
		}
	}
	return findings, nil
}

// parse accepts JSON lines, concatenated JSON objects, or JSON arrays of
// objects.
func parse(data []byte) ([]record, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("payload is not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []record
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var batch []record
			if err := json.Unmarshal(trimmed, &batch); err != nil {
				return nil, err
			}
			records = append(records, batch...)
			continue
		}

		var r record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
