// Package server is the web rendition of the blocking pipeline: a run form,
// a two-step scan/confirm flow, live websocket progress and an audit log
// download. It enforces single-writer discipline over the audit sink by
// allowing at most one run at a time.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aykute/skywall/internal/atproto"
	"github.com/aykute/skywall/internal/auditlog"
	"github.com/aykute/skywall/internal/config"
	"github.com/aykute/skywall/internal/metrics"
	"github.com/aykute/skywall/internal/pipeline"
)

// Remote is the authenticated surface a run needs from the graph service.
type Remote interface {
	pipeline.GraphSource
	pipeline.Blocker
}

// DialFunc logs in and returns the authenticated remote. Swappable in tests.
type DialFunc func(ctx context.Context, identifier, password string) (Remote, error)

// Server hosts the web UI.
type Server struct {
	cfg     config.Config
	metrics *metrics.Registry
	hub     *hub
	dial    DialFunc
	log     zerolog.Logger

	mu        sync.Mutex
	executing bool
	scan      *pipeline.ScanResult
	runner    *pipeline.Runner
	sink      *auditlog.Sink
	summary   *pipeline.RunSummary
}

// New builds a server over cfg. Credentials arrive per-request from the
// form, not from cfg.
func New(cfg config.Config, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		metrics: metrics.NewRegistry(),
		hub:     newHub(log),
		log:     log,
	}
	s.dial = func(ctx context.Context, identifier, password string) (Remote, error) {
		client := atproto.NewClient(atproto.ClientConfig{ServiceURL: cfg.ServiceURL})
		if _, err := client.Login(ctx, identifier, password); err != nil {
			return nil, err
		}
		return client, nil
	}
	return s
}

// Router wires all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/api/execute", s.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/log.csv", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("listen", s.cfg.Listen).Msg("web UI listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type scanRequest struct {
	Identifier    string `json:"identifier"`
	AppPassword   string `json:"appPassword"`
	SeedActor     string `json:"seedActor"`
	Threshold     int64  `json:"threshold"`
	MaxFollowers  int    `json:"maxFollowers"`
	HydrateCounts bool   `json:"hydrateCounts"`
}

type executeRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	cfg := s.cfg
	cfg.Identifier = req.Identifier
	cfg.AppPassword = req.AppPassword
	if req.SeedActor != "" {
		cfg.SeedActor = req.SeedActor
	}
	if req.Threshold > 0 {
		cfg.Threshold = req.Threshold
	}
	cfg.MaxFollowers = req.MaxFollowers
	cfg.HydrateCounts = req.HydrateCounts
	if cfg.SeedActor == "" {
		cfg.SeedActor = cfg.Identifier
	}
	if err := cfg.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, fmt.Errorf("a run is already executing"))
		return
	}
	s.mu.Unlock()

	remote, err := s.dial(r.Context(), cfg.Identifier, cfg.AppPassword)
	if err != nil {
		status := http.StatusBadGateway
		if atproto.IsAuthError(err) {
			status = http.StatusUnauthorized
		}
		httpError(w, status, err)
		return
	}

	s.metrics.Runs.Inc()
	sink := auditlog.New(cfg.LogPath)
	runner := pipeline.NewRunner(remote, remote, sink,
		pipeline.Multi(s.hub, metricsEvents{s.metrics}, pipeline.LogEvents{Log: s.log}),
		pipeline.RunnerConfig{
			SeedActor:     cfg.SeedActor,
			Threshold:     cfg.Threshold,
			MaxFollowers:  cfg.MaxFollowers,
			PageSize:      cfg.PageSize,
			HydrateCounts: cfg.HydrateCounts,
			BlockDelay:    cfg.BlockDelay.Std(),
		}, s.log)

	scan, err := runner.Scan(r.Context())
	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}

	s.mu.Lock()
	s.scan = scan
	s.runner = runner
	s.sink = sink
	s.summary = nil
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, fmt.Errorf("a run is already executing"))
		return
	}
	if s.scan == nil || s.runner == nil {
		s.mu.Unlock()
		httpError(w, http.StatusPreconditionFailed, fmt.Errorf("no scan to execute; scan first"))
		return
	}
	scan, runner := s.scan, s.runner
	s.executing = true
	s.mu.Unlock()

	// The execute request IS the explicit confirmation signal, distinct
	// from the scan that produced the candidate list.
	summary, err := runner.Execute(r.Context(), scan, req.Count)

	s.mu.Lock()
	s.executing = false
	s.scan = nil
	s.runner = nil
	s.summary = summary
	s.mu.Unlock()

	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"executing":   s.executing,
		"pendingScan": s.scan,
		"lastSummary": s.summary,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		sink = auditlog.New(s.cfg.LogPath)
	}
	data, err := sink.Export()
	if err != nil {
		httpError(w, http.StatusNotFound, fmt.Errorf("no audit log available: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="blocked_users_log.csv"`)
	w.Write(data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is same-host; no cross-origin embedding.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.add(conn)

	// Drain (and discard) client frames so pings keep the conn alive;
	// unregister on first read error.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// metricsEvents bridges pipeline progress into Prometheus counters.
type metricsEvents struct {
	reg *metrics.Registry
}

func (m metricsEvents) ScanStarted(string) {}

func (m metricsEvents) FollowersFetched(count int) {
	m.reg.FollowersFetched.Add(float64(count))
}

func (m metricsEvents) BlockSetFetched(count int) {
	m.reg.BlocksSnapshot.Add(float64(count))
}

func (m metricsEvents) CandidatesFiltered(eligible, _ int) {
	m.reg.Candidates.Add(float64(eligible))
}

func (m metricsEvents) BlockSucceeded(pipeline.Candidate, int, int) {
	m.reg.Blocks.WithLabelValues("ok").Inc()
}

func (m metricsEvents) BlockFailed(pipeline.Candidate, error) {
	m.reg.Blocks.WithLabelValues("failed").Inc()
}

func (m metricsEvents) Warned(pipeline.Warning) {}

func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
