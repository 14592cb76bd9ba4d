// Package apiserver is the REST surface: POST /api/summarize plus health
// and metrics endpoints, behind request id, logging, security header and
// rate limit middleware.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/ratelimit"
)

const maxRequestBytes = 64 << 10

// Summarizer runs the whole summarise flow for one URL.
type Summarizer interface {
	Summarize(ctx context.Context, rawURL string) (*engine.VideoSummary, error)
}

// Server routes API requests. A nil limiter disables rate limiting.
type Server struct {
	summarizer Summarizer
	limiter    ratelimit.Limiter
}

// New returns a Server. Pass a nil limiter to run without rate limiting.
func New(s Summarizer, limiter ratelimit.Limiter) *Server {
	return &Server{summarizer: s, limiter: limiter}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /metrics", handleMetrics)

	return requestID(accessLog(securityHeaders(s.rateLimit(mux))))
}

// envelope is the JSON body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    engine.Code         `json:"code,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	dec := json.NewDecoder(r.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		writeError(ctx, w, engine.InvalidJSONError())
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(ctx, w, engine.InvalidJSONError())
		return
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		writeError(ctx, w, engine.ValidationError(map[string][]string{sources.URLField: {"Expected object"}}))
		return
	}
	var rawURL string
	if v, ok := body[sources.URLField]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &rawURL); err != nil {
			writeError(ctx, w, engine.ValidationError(map[string][]string{sources.URLField: {"Expected string"}}))
			return
		}
	}

	out, err := s.summarizer.Summarize(ctx, rawURL)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "summarize: done", slog.String("video_id", out.VideoID), slog.Int("summary_chars", len(out.Summary)))
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(engine.FormatMetrics()))
}

// writeError renders err as the error envelope. Only the client-safe
// message, code and details leave the process; the cause is logged.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	e := engine.AsError(err)
	attrs := []any{slog.String("code", string(e.Code)), slog.Int("status", e.Status)}
	if e.Err != nil {
		attrs = append(attrs, slog.Any("error", e.Err))
	}
	switch {
	case e.Status >= http.StatusInternalServerError:
		slog.ErrorContext(ctx, "request failed", attrs...)
	case errors.Is(ctx.Err(), context.Canceled):
		slog.InfoContext(ctx, "request cancelled by client", attrs...)
	default:
		slog.WarnContext(ctx, "request rejected", attrs...)
	}
	writeJSON(w, e.Status, envelope{Error: e.Message, Code: e.Code, Details: e.Details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", slog.Any("error", err))
	}
}
