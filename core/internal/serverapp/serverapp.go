package serverapp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"drfeedback/bundle"
	"drfeedback/core/internal/diagnose"
	"drfeedback/registry"
	"drfeedback/report"
)

const DefaultMaxBundleSize = 64 << 20

type Config struct {
	Driver        *diagnose.Driver
	Analyzers     []registry.Entry
	MaxBundleSize int64
	Logger        *zap.Logger
}

type Server struct {
	cfg Config
}

type analyzerInfo struct {
	Artifact string `json:"artifact"`
	Kind     string `json:"kind"`
}

type errorResponse struct {
	Error    string `json:"error"`
	ReportID string `json:"report_id,omitempty"`
}

func New(cfg Config) *Server {
	if cfg.MaxBundleSize <= 0 {
		cfg.MaxBundleSize = DefaultMaxBundleSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{cfg: cfg}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/analyzers", s.handleAnalyzers)
	mux.HandleFunc("/v1/reports", s.handleReports)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyzers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	out := make([]analyzerInfo, 0, len(s.cfg.Analyzers))
	for _, e := range s.cfg.Analyzers {
		out = append(out, analyzerInfo{Artifact: e.Artifact, Kind: e.Kind()})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "", errors.New("method not allowed"))
		return
	}

	d := s.cfg.Driver
	if q := r.URL.Query().Get("format"); q != "" {
		format, err := report.ParseFormat(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "", err)
			return
		}
		d = d.WithFormat(format)
	}

	started := time.Now()
	body, err := s.readBundle(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "", fmt.Errorf("bundle exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "", err)
		return
	}

	res, err := d.Run(r.Context(), bytes.NewReader(body))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bundle.ErrArchiveUnreadable) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, res.ID, err)
		return
	}

	s.cfg.Logger.Info("report served",
		zap.String("report_id", res.ID),
		zap.String("format", string(res.Document.Format)),
		zap.Int("bundle_bytes", len(body)),
		zap.Duration("duration", time.Since(started)),
	)

	w.Header().Set("Content-Type", res.Document.ContentType())
	w.Header().Set("X-Report-ID", res.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Document.Body)
}

// readBundle accepts the archive either as the raw request body or as the
// multipart part named "file".
func (s *Server) readBundle(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBundleSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(r.Body)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errors.New(`multipart body has no "file" part`)
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		b, err := io.ReadAll(part)
		_ = part.Close()
		return b, err
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, reportID string, err error) {
	s.cfg.Logger.Warn("report request failed",
		zap.Int("status", status),
		zap.String("report_id", reportID),
		zap.Error(err),
	)
	w.Header().Set("Content-Type", "application/json")
	if reportID != "" {
		w.Header().Set("X-Report-ID", reportID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), ReportID: reportID})
}
