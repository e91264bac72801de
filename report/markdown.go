package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"drfeedback/analyzers"
)

const markdownEscapes = "\\`*_[]<>#|~&"

func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(markdownEscapes, r) {
			b.WriteByte('\\')
		}
		if r == '\n' || r == '\r' {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fence returns a backtick run one longer than the longest run in s, and
// never shorter than three.
func fence(s string) string {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}

func renderMarkdown(r Report) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(r.Title))
	if r.ID != "" {
		fmt.Fprintf(&b, "Report `%s`, generated %s.\n\n", r.ID, r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	b.WriteString("## Summary\n\n")
	for _, s := range analyzers.Severities {
		fmt.Fprintf(&b, "### %s\n\n", bucketTitles[s])
		entries := r.Bucket(s)
		if len(entries) == 0 {
			b.WriteString("_None._\n\n")
			continue
		}
		for _, e := range entries {
			fmt.Fprintf(&b, "- **%s**: %s\n", escapeMarkdown(e.Artifact), escapeMarkdown(e.Message))
		}
		b.WriteString("\n")
	}

	if !r.IncludeArtifacts {
		return b.Bytes()
	}

	b.WriteString("## Artifacts\n\n")
	if len(r.Outcomes) == 0 {
		b.WriteString("_The bundle contained no files._\n")
		return b.Bytes()
	}
	for _, o := range r.Outcomes {
		a := o.Artifact
		fmt.Fprintf(&b, "### %s\n\n", escapeMarkdown(a.Name))
		fmt.Fprintf(&b, "%s, sha256 `%s`, findings: %s.\n\n", humanSize(a.Size()), a.Digest(), countsLine(o))

		switch classify(a) {
		case payloadImage:
			fmt.Fprintf(&b, "![%s](data:image/png;base64,%s)\n\n", escapeMarkdown(a.Name), base64.StdEncoding.EncodeToString(a.Data))
		case payloadBinary:
			b.WriteString("_Binary content is not shown._\n\n")
		default:
			text := strings.ReplaceAll(string(a.Data), "\r\n", "\n")
			if text == "" {
				b.WriteString("_Empty file._\n\n")
				continue
			}
			f := fence(text)
			b.WriteString(f + "text\n")
			b.WriteString(text)
			if !strings.HasSuffix(text, "\n") {
				b.WriteString("\n")
			}
			b.WriteString(f + "\n\n")
		}
	}
	return b.Bytes()
}
