package api

import (
	"context"
	"net/http"
	"time"
)

const (
	statusUp   = "up"
	statusDown = "down"
)

// HealthCheck reports a dependency's readiness. A nil error means up.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Version     string            `json:"version,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Uptime      string            `json:"uptime"`
	Checks      map[string]string `json:"checks,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      statusUp,
		Service:     s.opts.Service,
		Version:     s.opts.Version,
		Environment: s.opts.Environment,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Timestamp:   time.Now().UTC(),
	}
	if len(s.opts.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.opts.Checks))
	}
	for _, c := range s.opts.Checks {
		status := statusUp
		if err := c.Check(ctx); err != nil {
			status = statusDown
			resp.Status = statusDown
		}
		resp.Checks[c.Name] = status
	}

	code := http.StatusOK
	if resp.Status == statusDown {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
