// Package server exposes the tool surface over HTTP. Transport framing
// only: it decodes nothing itself beyond routing, and maps the stable
// error kinds onto status codes.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tianqilab/tianqi/internal/tool"
)

// maxBodyBytes bounds a tool argument object. Requests are small JSON
// maps; anything bigger is not a legitimate caller.
const maxBodyBytes = 1 << 20

// Server serves the tool API.
type Server struct {
	httpServer *http.Server
	svc        *tool.Service
	log        *zap.Logger
}

// New creates a Server. The gatherer backs GET /metrics; pass the same
// registry the tool metrics were registered with.
func New(addr string, svc *tool.Service, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/", s.handleTool)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// errBody is the JSON error shape.
type errBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" {
		s.writeError(w, tool.KindUnknownTool, "missing tool name")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, tool.KindInternal, "read request body")
		return
	}

	result, err := s.svc.Dispatch(r.Context(), name, body)
	if err != nil {
		s.writeError(w, tool.ErrorKind(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) writeError(w http.ResponseWriter, kind, message string) {
	var body errBody
	body.Error.Kind = kind
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(kind))
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encode error response", zap.Error(err))
	}
}

// statusFor maps stable error kinds onto HTTP status codes.
func statusFor(kind string) int {
	switch {
	case kind == tool.KindUnknownTool:
		return http.StatusNotFound
	case tool.IsValidationKind(kind):
		return http.StatusBadRequest
	case kind == tool.KindInsufficientHistory:
		return http.StatusUnprocessableEntity
	case kind == tool.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
