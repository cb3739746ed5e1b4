// Package api exposes the router over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/auracx/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	MaxBodyBytes    int64         `split_words:"true" default:"65536"`
	RateLimit       float64       `split_words:"true" default:"20"`
	RateBurst       int           `split_words:"true" default:"40"`
	AllowedOrigin   string        `split_words:"true" default:"*"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
}

// Processor handles one customer message.
type Processor interface {
	Handle(ctx context.Context, msg contractx.Message) (contractx.Response, error)
}

type Options struct {
	Service     string
	Version     string
	Environment string
	Checks      []HealthCheck
}

type Server struct {
	proc    Processor
	cfg     Config
	opts    Options
	started time.Time
}

func NewHandler(proc Processor, cfg Config, opts Options) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if opts.Service == "" {
		opts.Service = "auracx"
	}
	s := &Server{proc: proc, cfg: cfg, opts: opts, started: time.Now()}

	mux := http.NewServeMux()
	mux.Handle("/chat", withRateLimit(cfg.RateLimit, cfg.RateBurst)(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleRoot)

	return chainMiddlewares(mux,
		withCORS(cfg.AllowedOrigin),
		withLogging,
		withRequestID,
		withRecover,
	)
}

func NewServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

type errorResponse struct {
	Error     string       `json:"error"`
	Details   []FieldError `json:"details,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	requestID := RequestIDFrom(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", RequestID: requestID})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body", RequestID: requestID})
		return
	}

	if errs := validateChatRequest(body); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: errs, RequestID: requestID})
		return
	}

	var msg contractx.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", RequestID: requestID})
		return
	}
	msg.RequestID = requestID

	resp, err := s.proc.Handle(r.Context(), msg)
	if err != nil {
		if orchestratorx.IsInputError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: requestID})
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("request_id", requestID).Msg("chat handling failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", RequestID: requestID})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.opts.Service,
		"version": s.opts.Version,
		"status":  "running",
		"endpoints": []string{
			"POST /chat",
			"GET /health",
			"GET /metrics",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write json response")
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
