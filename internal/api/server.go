// Package api implements the collision-report HTTP surface: stream CRUD and
// monitoring lifecycle, pending-alert review, the alert workflow, live event
// feeds, health/version, and the monitor chart pages.
package api

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/collision.report/internal/alerting"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/events"
	"github.com/banshee-data/collision.report/internal/httputil"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/scheduler"
	"github.com/banshee-data/collision.report/internal/timeutil"
	"github.com/banshee-data/collision.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server routes API requests to the store, scheduler, alerting machine, and
// event bus.
type Server struct {
	db      *db.DB
	bus     *events.Bus
	sched   *scheduler.Scheduler
	machine *alerting.Machine

	// Clock stamps alert workflow transitions and is replaceable in tests.
	Clock timeutil.Clock
}

func NewServer(database *db.DB, bus *events.Bus, sched *scheduler.Scheduler, machine *alerting.Machine) *Server {
	return &Server{
		db:      database,
		bus:     bus,
		sched:   sched,
		machine: machine,
		Clock:   timeutil.RealClock{},
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so the event tail keeps streaming behind the logger.
func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack passes through so the websocket upgrade works behind the logger.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/streams", s.listStreams)
	mux.HandleFunc("POST /api/streams", s.createStream)
	mux.HandleFunc("GET /api/streams/nearby", s.listNearbyStreams)
	mux.HandleFunc("GET /api/streams/{id}", s.getStream)
	mux.HandleFunc("PUT /api/streams/{id}", s.updateStream)
	mux.HandleFunc("DELETE /api/streams/{id}", s.deleteStream)
	mux.HandleFunc("POST /api/streams/{id}/start", s.startStream)
	mux.HandleFunc("POST /api/streams/{id}/stop", s.stopStream)

	mux.HandleFunc("GET /api/pending-alerts", s.listPendingAlerts)
	mux.HandleFunc("GET /api/pending-alerts/{id}", s.getPendingAlert)
	mux.HandleFunc("POST /api/pending-alerts/{id}/approve", s.approvePendingAlert)
	mux.HandleFunc("POST /api/pending-alerts/{id}/reject", s.rejectPendingAlert)

	mux.HandleFunc("GET /api/alerts", s.listAlerts)
	mux.HandleFunc("GET /api/alerts/{id}", s.getAlert)
	mux.HandleFunc("POST /api/alerts/{id}/acknowledge", s.acknowledgeAlert)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", s.resolveAlert)

	mux.HandleFunc("GET /api/events/tail", s.bus.HandleTail)
	mux.HandleFunc("GET /api/streams/{id}/events/tail", s.bus.HandleStreamTail)
	mux.HandleFunc("GET /api/events/ws", s.bus.HandleWebSocket)

	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/version", s.showVersion)

	mux.HandleFunc("GET /monitor/streams", s.handleStreamsChart)
	mux.HandleFunc("GET /monitor/alerts", s.handleAlertsChart)

	return mux
}

// writeError maps domain errors onto HTTP statuses: missing entities are
// 404, refused transitions are 409, anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrStreamNotFound),
		errors.Is(err, db.ErrPendingAlertNotFound),
		errors.Is(err, db.ErrAlertNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, db.ErrInvalidState),
		errors.Is(err, scheduler.ErrAlreadyMonitoring):
		httputil.Conflict(w, err.Error())
	default:
		monitoring.Logf("api error: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	stats := s.bus.Stats()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":            "ok",
		"monitored_streams": s.sched.ActiveLoops(),
		"event_subscribers": stats.Subscribers,
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"product":    version.String(),
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
