package handler

import (
	"context"
	"net/http"
	"os"
	"time"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"

	pingTimeout = 5 * time.Second
)

// Dependency is one backing service checked by the readiness probe. A nil
// Ping reports the dependency as not initialized.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves Kubernetes style liveness and readiness probes.
type HealthHandler struct {
	deps    []Dependency
	started time.Time
	version string
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{deps: deps, started: time.Now(), version: version}
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health only confirms the process is serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	h.respond(w, map[string]Check{"process": {Status: statusUp}})
}

// Live is the liveness probe; it never depends on backing services.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

// Ready pings every dependency and is DOWN if any of them is.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	checks := make(map[string]Check, len(h.deps))
	for _, dep := range h.deps {
		checks[dep.Name] = ping(r.Context(), dep)
	}
	h.respond(w, checks)
}

func (h *HealthHandler) respond(w http.ResponseWriter, checks map[string]Check) {
	body := HealthResponse{
		Status:    statusUp,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
	code := http.StatusOK
	for _, c := range checks {
		if c.Status != statusUp {
			body.Status, code = statusDown, http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, body)
}

func ping(ctx context.Context, dep Dependency) Check {
	if dep.Ping == nil {
		return Check{Status: statusDown, Message: dep.Name + " is not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := dep.Ping(ctx); err != nil {
		return Check{Status: statusDown, Message: "Cannot connect to " + dep.Name}
	}
	return Check{Status: statusUp}
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
