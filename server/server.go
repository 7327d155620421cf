package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
	"github.com/hupe1980/healthbot/metrics"
	"github.com/hupe1980/healthbot/runner"
)

// FallbackResponse is returned when a turn produced no final summary.
const FallbackResponse = "Sorry, I couldn’t find a helpful summary."

// HistoryTimeFormat formats history timestamps.
const HistoryTimeFormat = "2006-01-02 15:04"

const defaultHistoryLimit = 10

// Chatter runs chat turns. *runner.Runner implements it.
type Chatter interface {
	RunSync(ctx context.Context, in runner.ChatInput) (*runner.Result, error)
}

// HealthCheck reports the readiness of a dependency.
type HealthCheck func(ctx context.Context) error

// Options configures the server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// RateLimit is the sustained chat requests per second per user, 0 = off.
	RateLimit float64
	RateBurst int
	// History serves the history endpoints; nil returns empty histories.
	History core.SymptomStore
	// Checks are run by /healthz, keyed by dependency name.
	Checks  map[string]HealthCheck
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

// Server is the HTTP API.
type Server struct {
	chat    Chatter
	opts    Options
	limiter *userLimiter
	handler http.Handler
}

// New builds the server and its routes.
func New(chat Chatter, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:         ":8000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		CORSOrigins:  []string{"*"},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{chat: chat, opts: opts}

	if opts.RateLimit > 0 {
		s.limiter = newUserLimiter(opts.RateLimit, opts.RateBurst)
	}

	r := mux.NewRouter()
	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/history/{user_id}", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/history/{user_id}/queries", s.handleQueries).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	s.handler = c.Handler(r)

	return s
}

// Handler returns the root handler including CORS.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.opts.Logger.Info("http server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.opts.Logger.Info("http server shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.limiter.cleanup(now)
		}
	}
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Location  string `json:"location,omitempty"`
}

// ChatResponse is the reply of POST /chat.
type ChatResponse struct {
	Response          string   `json:"response"`
	Symptoms          []string `json:"symptoms"`
	RiskScore         float64  `json:"risk_score"`
	AlertSent         bool     `json:"alert_sent"`
	SuspectedDiseases []string `json:"suspected_diseases"`
	RecommendedPath   string   `json:"recommended_path"`
	History           []string `json:"history"`
}

// HistoryItem is one entry of GET /history/{user_id}.
type HistoryItem struct {
	Symptoms  string `json:"symptoms"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := runner.ChatInput{UserID: req.UserID, SessionID: req.SessionID, Message: req.Message, Location: req.Location}
	if err := in.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.limiter != nil && !s.limiter.Allow(req.UserID) {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")

		return
	}

	res, err := s.chat.RunSync(r.Context(), in)
	if err != nil {
		s.opts.Logger.Error("chat failed", "user_id", req.UserID, "error", err)

		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, runner.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}

		s.writeError(w, status, "chat turn failed")

		return
	}

	st := res.State

	answer := res.Answer()
	if answer == "" {
		answer = FallbackResponse
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Response:          answer,
		Symptoms:          nonNil(st.Symptoms),
		RiskScore:         st.RiskScore,
		AlertSent:         st.AlertSent,
		SuspectedDiseases: nonNil(st.SuspectedDiseases),
		RecommendedPath:   st.RecommendedPath,
		History:           nonNil(st.MemoryContext),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := []HistoryItem{}

	if s.opts.History != nil {
		entries, err := s.opts.History.MessageHistory(r.Context(), userID, limit)
		if err != nil {
			s.opts.Logger.Error("history lookup failed", "user_id", userID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "history unavailable")

			return
		}

		for _, e := range entries {
			items = append(items, HistoryItem{Symptoms: e.Symptoms, Response: e.Response, Timestamp: e.Timestamp.Format(HistoryTimeFormat)})
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	queries := []string{}

	if s.opts.History != nil {
		q, err := s.opts.History.RecentQueries(r.Context(), userID, limit)
		if err != nil {
			s.opts.Logger.Error("query lookup failed", "user_id", userID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "history unavailable")

			return
		}

		queries = append(queries, q...)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"history": queries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.opts.Checks))
	status, code := "ok", http.StatusOK

	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable

			continue
		}

		checks[name] = "ok"
	}

	s.writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}

	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.opts.Logger.Warn("error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg})
}
