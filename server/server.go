package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/factory"
	"github.com/hupe1980/agentfactory/internal/metrics"
	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/store"
)

// ErrTooManyRuns is returned when every run slot is taken.
var ErrTooManyRuns = errors.New("too many concurrent workflow runs")

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Collector
	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Store keeps asynchronous results. Nil uses an in-memory store.
	Store store.Store
	// AuthToken enables bearer authentication when set.
	AuthToken string
	RateLimit float64
	RateBurst int
	// MaxConcurrentRuns bounds asynchronous runs. Zero means unbounded.
	MaxConcurrentRuns int
	// RunTimeout bounds a single workflow run. Zero means no limit.
	RunTimeout time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// Server serves the workflow API for an Environment.
type Server struct {
	env    *factory.Environment
	opts   Options
	logger *logging.ContextLogger
	slots  chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup

	handler http.Handler
}

// New creates a Server.
func New(env *factory.Environment, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		Now:             time.Now,
		NewID:           util.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore(24 * time.Hour)
	}

	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		env:       env,
		opts:      opts,
		logger:    logging.With(opts.Logger, "component", "server"),
		runCtx:    runCtx,
		cancelRun: cancel,
	}

	if opts.MaxConcurrentRuns > 0 {
		s.slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	s.handler = s.routes()

	return s
}

// FromConfig maps the server section of the application config to Options.
func FromConfig(cfg config.ServerConfig) func(o *Options) {
	return func(o *Options) {
		o.AuthToken = cfg.AuthToken
		o.RateLimit = cfg.RateLimit
		o.RateBurst = cfg.RateBurst
		o.MaxConcurrentRuns = cfg.MaxConcurrentRuns
		if cfg.ReadTimeout > 0 {
			o.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			o.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.ShutdownTimeout > 0 {
			o.ShutdownTimeout = cfg.ShutdownTimeout
		}
	}
}

// Handler returns the HTTP handler with the middleware chain applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /run/workflow", s.handleRunAsync)
	mux.HandleFunc("POST /run/workflow/local", s.handleRunAsync)
	mux.HandleFunc("POST /run/workflow/sync", s.handleRunSync)
	mux.HandleFunc("GET /workflow/result/{trace_id}", s.handleResult)
	mux.HandleFunc("POST /tools/{name}", s.handleTool)

	return Chain(mux,
		Recovery(s.logger),
		Observe(s.logger, s.opts.Metrics),
		RateLimiter(s.runCtx, s.opts.RateLimit, s.opts.RateBurst),
		BearerAuth(s.opts.AuthToken, "/healthz", "/metrics"),
	)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully and waits for in-flight runs.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.opts.ReadTimeout,
		WriteTimeout:   s.opts.WriteTimeout,
		IdleTimeout:    2 * s.opts.ReadTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")

	err := srv.Shutdown(shutdownCtx)
	s.Close()

	return err
}

// Close cancels running workflows and waits for them to finish.
func (s *Server) Close() {
	s.cancelRun()
	s.wg.Wait()
}

// Wait blocks until every asynchronous run has finished.
func (s *Server) Wait() { s.wg.Wait() }

type runRequest struct {
	WorkflowConfig json.RawMessage `json:"workflow_config"`
	UserID         string          `json:"user_id"`
	UserTask       string          `json:"user_task"`
}

type runResponse struct {
	TraceID string       `json:"trace_id"`
	Status  store.Status `json:"status,omitempty"`
	Result  string       `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type resultResponse struct {
	Status store.Status `json:"status"`
	Result string       `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeRun(w http.ResponseWriter, r *http.Request) (*config.WorkflowConfig, runRequest, bool) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, req, false
	}

	if len(req.WorkflowConfig) == 0 {
		writeError(w, http.StatusBadRequest, "workflow_config is required")
		return nil, req, false
	}

	if req.UserTask == "" {
		writeError(w, http.StatusBadRequest, "user_task is required")
		return nil, req, false
	}

	cfg, err := config.ParseWorkflow(req.WorkflowConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, req, false
	}

	return cfg, req, true
}

func (s *Server) handleRunAsync(w http.ResponseWriter, r *http.Request) {
	cfg, req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}

	if !s.acquire() {
		writeError(w, http.StatusServiceUnavailable, ErrTooManyRuns.Error())
		return
	}

	traceID := s.opts.NewID()
	now := s.opts.Now()

	pending := store.Result{
		TraceID:   traceID,
		UserID:    req.UserID,
		Pattern:   cfg.RelationsType,
		Status:    store.StatusNotCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.opts.Store.Put(r.Context(), pending); err != nil {
		s.release()
		s.logger.Error("failed to store pending run", "trace_id", traceID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to store run")
		return
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer s.release()

		final := s.execute(s.runCtx, cfg, req)
		final.TraceID = traceID
		final.CreatedAt = pending.CreatedAt

		if err := s.opts.Store.Put(context.WithoutCancel(s.runCtx), final); err != nil {
			s.logger.Error("failed to store run result", "trace_id", traceID, "error", err.Error())
		}
	}()

	s.logger.Info("workflow run started", "trace_id", traceID, "user_id", req.UserID, "pattern", cfg.RelationsType)

	writeJSON(w, http.StatusAccepted, runResponse{TraceID: traceID})
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	cfg, req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}

	res := s.execute(r.Context(), cfg, req)

	status := http.StatusOK
	if res.Status == store.StatusFailed {
		status = http.StatusBadGateway
	}

	writeJSON(w, status, runResponse{
		TraceID: s.opts.NewID(),
		Status:  res.Status,
		Result:  res.Result,
		Error:   res.Error,
	})
}

func (s *Server) execute(ctx context.Context, cfg *config.WorkflowConfig, req runRequest) store.Result {
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	res := store.Result{UserID: req.UserID, Pattern: cfg.RelationsType}

	out, err := s.env.Run(ctx, cfg, req.UserID, req.UserTask)

	res.UpdatedAt = s.opts.Now()

	if err != nil {
		s.logger.Warn("workflow run failed", "user_id", req.UserID, "error", err.Error())
		res.Status = store.StatusFailed
		res.Error = err.Error()
		return res
	}

	res.Status = store.StatusCompleted
	res.Result = out.Output

	return res
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("trace_id")

	res, err := s.opts.Store.Get(r.Context(), traceID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, resultResponse{Status: store.StatusNotFound})
		return
	}
	if err != nil {
		s.logger.Error("failed to load run result", "trace_id", traceID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{Status: res.Status, Result: res.Result, Error: res.Error})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{}
	if err := decodeBody(r, &params); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := s.env.Tools().ExecuteByName(r.Context(), r.PathValue("name"), params)

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) acquire() bool {
	if s.slots == nil {
		return true
	}

	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
