package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"drfeedback/analyzers"
)

type Event struct {
	Time      string            `json:"time"`
	Type      string            `json:"type"`
	Artifact  string            `json:"artifact,omitempty"`
	Severity  string            `json:"severity,omitempty"`
	Message   string            `json:"message,omitempty"`
	SHA256    string            `json:"sha256,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	Content   string            `json:"content,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func renderJSONL(r Report) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	ts := r.GeneratedAt.UTC().Format(time.RFC3339Nano)

	events := []Event{{
		Time: ts,
		Type: "report_started",
		Metadata: map[string]string{
			"report_id": r.ID,
			"title":     r.Title,
		},
	}}

	for _, s := range analyzers.Severities {
		for _, e := range r.Bucket(s) {
			events = append(events, Event{
				Time:     ts,
				Type:     "finding",
				Artifact: e.Artifact,
				Severity: e.Severity.String(),
				Message:  e.Message,
			})
		}
	}

	if r.IncludeArtifacts {
		for _, o := range r.Outcomes {
			a := o.Artifact
			ev := Event{
				Time:      ts,
				Type:      "artifact",
				Artifact:  a.Name,
				SHA256:    a.Digest(),
				SizeBytes: a.Size(),
				Metadata: map[string]string{
					"kind":     classify(a).String(),
					"findings": strconv.Itoa(len(o.Findings)),
				},
			}
			if classify(a) == payloadText {
				ev.Content = string(a.Data)
			}
			events = append(events, ev)
		}
	}

	events = append(events, Event{
		Time: ts,
		Type: "report_finished",
		Metadata: map[string]string{
			"report_id": r.ID,
			"artifacts": strconv.Itoa(len(r.Outcomes)),
			"info":      strconv.Itoa(len(r.Info)),
			"warn":      strconv.Itoa(len(r.Warn)),
			"error":     strconv.Itoa(len(r.Error)),
		},
	})

	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}
