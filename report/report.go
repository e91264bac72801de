// Package report aggregates per-artifact outcomes into a single ordered
// document with a summary section and an artifact section.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inhies/go-bytesize"

	"drfeedback/analyzers"
	"drfeedback/bundle"
)

type Outcome struct {
	Artifact bundle.Artifact
	Findings []analyzers.Finding
}

func (o Outcome) Count(s analyzers.Severity) int { return analyzers.Count(o.Findings, s) }

// Entry is a finding flattened into a summary bucket.
type Entry struct {
	Artifact string `json:"artifact"`
	analyzers.Finding
}

type Report struct {
	ID               string
	Title            string
	GeneratedAt      time.Time
	IncludeArtifacts bool
	Outcomes         []Outcome
	Info             []Entry
	Warn             []Entry
	Error            []Entry
}

func (r Report) Bucket(s analyzers.Severity) []Entry {
	switch s {
	case analyzers.SeverityInfo:
		return r.Info
	case analyzers.SeverityWarn:
		return r.Warn
	default:
		return r.Error
	}
}

type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSONL    Format = "jsonl"
)

var Formats = []Format{FormatHTML, FormatMarkdown, FormatText, FormatJSONL}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "jsonl":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown report format %q (want one of %v)", s, Formats)
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSONL:
		return "application/x-ndjson"
	default:
		return "text/plain; charset=utf-8"
	}
}

type Document struct {
	Format Format
	Body   []byte
}

func (d Document) ContentType() string { return d.Format.ContentType() }

type payloadKind int

const (
	payloadText payloadKind = iota
	payloadImage
	payloadBinary
)

// classify looks at the payload, never at the artifact name.
func classify(a bundle.Artifact) payloadKind {
	switch {
	case a.IsPNG():
		return payloadImage
	case utf8.Valid(a.Data):
		return payloadText
	default:
		return payloadBinary
	}
}

func (k payloadKind) String() string {
	switch k {
	case payloadImage:
		return "image"
	case payloadBinary:
		return "binary"
	default:
		return "text"
	}
}

func humanSize(n int64) string {
	return bytesize.New(float64(n)).String()
}

func countsLine(o Outcome) string {
	return fmt.Sprintf("%d info, %d warn, %d error",
		o.Count(analyzers.SeverityInfo), o.Count(analyzers.SeverityWarn), o.Count(analyzers.SeverityError))
}

var bucketTitles = map[analyzers.Severity]string{
	analyzers.SeverityInfo:  "Information",
	analyzers.SeverityWarn:  "Warning",
	analyzers.SeverityError: "Error",
}
