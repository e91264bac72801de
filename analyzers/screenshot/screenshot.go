package screenshot

import (
	"bytes"
	"context"
	"image/png"

	"drfeedback/analyzers"
)

var signature = []byte("\x89PNG\r\n\x1a\n")

type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Inspect(ctx context.Context, data []byte) ([]analyzers.Finding, error) {
	_ = ctx

	if !bytes.HasPrefix(data, signature) {
		return []analyzers.Finding{analyzers.Warn("screenshot is not a PNG image")}, nil
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return []analyzers.Finding{analyzers.Error("could not decode screenshot: %v", err)}, nil
	}
	return []analyzers.Finding{analyzers.Info("screenshot is %dx%d pixels", cfg.Width, cfg.Height)}, nil
}
