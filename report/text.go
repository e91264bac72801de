package report

import (
	"bytes"
	"fmt"
	"strings"

	"drfeedback/analyzers"
)

func renderText(r Report) []byte {
	var b bytes.Buffer

	b.WriteString(r.Title + "\n")
	b.WriteString(strings.Repeat("=", len(r.Title)) + "\n")
	if r.ID != "" {
		fmt.Fprintf(&b, "report %s, generated %s\n", r.ID, r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	b.WriteString("\nSUMMARY\n")
	for _, s := range analyzers.Severities {
		fmt.Fprintf(&b, "\n%s:\n", bucketTitles[s])
		entries := r.Bucket(s)
		if len(entries) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		for _, e := range entries {
			fmt.Fprintf(&b, "  [%s] %s\n", e.Artifact, e.Message)
		}
	}

	if !r.IncludeArtifacts {
		return b.Bytes()
	}

	b.WriteString("\nARTIFACTS\n")
	for _, o := range r.Outcomes {
		a := o.Artifact
		fmt.Fprintf(&b, "\n--- %s (%s, sha256 %s, %s)\n", a.Name, humanSize(a.Size()), a.Digest(), countsLine(o))
		switch classify(a) {
		case payloadImage:
			b.WriteString("[PNG image not shown in text output]\n")
		case payloadBinary:
			b.WriteString("[binary content not shown]\n")
		default:
			text := strings.ReplaceAll(string(a.Data), "\r\n", "\n")
			b.WriteString(text)
			if text != "" && !strings.HasSuffix(text, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.Bytes()
}
