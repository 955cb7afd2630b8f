// Package httpapi serves royalty projections, reports and market data over
// HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
	"github.com/joelkehle/techtransfer-royalty/internal/telemetry"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Analyzer      *analysis.Analyzer
	Source        marketdata.Source
	PDF           report.PDFRenderer
	Metrics       *telemetry.Metrics
	Logger        *zap.Logger
	ReportTimeout time.Duration
}

type Server struct {
	cfg    Config
	logger *zap.Logger
}

func NewServer(cfg Config) http.Handler {
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 60 * time.Second
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s.handle(mux, "/v1/projections", s.handleProjections)
	s.handle(mux, "/v1/reports", s.handleReports)
	s.handle(mux, "/v1/market-data", s.handleMarketData)
	s.handle(mux, "/v1/curve", s.handleCurve)
	s.handle(mux, "/v1/health", s.handleHealth)
	mux.Handle("/metrics", cfg.Metrics.Handler())
	return mux
}

func (s *Server) handle(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		elapsed := time.Since(start)
		s.cfg.Metrics.ObserveHTTP(path, sw.status, elapsed)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// internalErrorBody is sent when a payload cannot be encoded.
const internalErrorBody = `{"ok":false,"error":{"code":"internal","message":"response encoding failed"}}` + "\n"

// writeJSON encodes payload before writing the header; a payload that cannot
// be encoded becomes a 500 envelope.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	blob, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, internalErrorBody)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(blob, '\n'))
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeRequest(r *http.Request) (analysis.Request, error) {
	var req analysis.Request
	blob, err := readBody(r)
	if err != nil {
		return req, validationError("", "read body: "+err.Error())
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		return req, validationError("", "invalid json: "+err.Error())
	}
	return req, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.cfg.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "analysis": out, "banner": report.Banner(out.Result.Classification)})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, validationError("format", err.Error()))
		return
	}
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.cfg.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ReportTimeout)
	defer cancel()
	body, err := report.Render(ctx, out, format, s.cfg.PDF)
	if err != nil {
		s.logger.Warn("report render failed", zap.String("projection_id", out.ID), zap.String("format", string(format)), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `inline; filename="royalty-`+out.ID+`.`+format.Extension()+`"`)
	w.Header().Set("X-Projection-ID", out.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		writeError(w, validationError("product", "product is required"))
		return
	}
	if s.cfg.Source == nil {
		writeError(w, newError(CodeUnavailable, "", "no market data source configured"))
		return
	}
	md, err := marketdata.LookupInSector(r.Context(), s.cfg.Source, product, r.URL.Query().Get("sector"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "market_data": md})
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	term, err := strconv.Atoi(strings.TrimSpace(q.Get("term_years")))
	if err != nil {
		writeError(w, validationError("term_years", "term_years must be an integer"))
		return
	}
	initial, err := strconv.ParseFloat(strings.TrimSpace(q.Get("initial_pct")), 64)
	if err != nil {
		writeError(w, validationError("initial_pct", "initial_pct must be a number"))
		return
	}
	profiles := s.cfg.Analyzer.Profiles()
	name := strings.ToLower(strings.TrimSpace(q.Get("profile")))
	if name == "" {
		name = profiles.DefaultProfile
	}
	curve, err := profiles.Get(name)
	if err != nil {
		writeError(w, validationError("profile", err.Error()))
		return
	}
	seq, err := curve.Shaped(term, initial/100)
	if err != nil {
		writeError(w, err)
		return
	}
	phases := make([]royalty.Phase, len(seq))
	for i := range seq {
		phases[i] = royalty.PhaseAt(i)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"profile":     name,
		"term_years":  term,
		"initial_pct": initial,
		"penetration": seq,
		"phases":      phases,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"status":         "ok",
		"curve_profiles": s.cfg.Analyzer.Profiles().Names(),
		"pdf":            s.cfg.PDF != nil,
	})
}
