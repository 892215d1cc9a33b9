// Package web provides the HTTP interface of the okay-to-wake daemon: the
// status document, the active schedule, schedule upload and metrics.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/ingest"
	"github.com/sweeney/okay-to-wake/internal/parse"
	"github.com/sweeney/okay-to-wake/internal/status"
)

// MaxUploadBytes bounds a schedule upload. A valid text schedule is a few
// hundred bytes; a commented one or a JSON document a few KiB.
const MaxUploadBytes = 64 << 10

// Source is the ingestion source name reported for uploads.
const Source = "http"

// Schedule is the active schedule as the server sees it.
type Schedule interface {
	IngestFrom(source string, payload []byte, kind parse.Kind) (ingest.Result, error)
	FormatSchedule() string
}

// Server serves the daemon over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	schedule   Schedule
	logger     *zap.Logger
}

// New creates a Server that reads state from tracker and the schedule from
// sched. If gatherer is nil, /metrics is not served.
func New(addr string, tracker *status.Tracker, sched Schedule, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		tracker:  tracker,
		schedule: sched,
		logger:   logger.With(zap.String("component", "web")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("GET /schedule", s.handleSchedule)
	mux.HandleFunc("POST /schedule", s.handleUpload)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.schedule.FormatSchedule())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := requestKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.schedule.IngestFrom(Source, body, kind)
	switch {
	case errors.Is(err, ingest.ErrInvalid):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.logger.Error("schedule upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, newIngestResponse(res))
	}
}

// requestKind takes the payload kind from ?kind= if present, else from the
// Content-Type header.
func requestKind(r *http.Request) (parse.Kind, error) {
	if k := r.URL.Query().Get("kind"); k != "" {
		return parse.ParseKind(k)
	}
	return parse.KindFromContentType(r.Header.Get("Content-Type")), nil
}
