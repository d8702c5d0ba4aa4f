// Package http serves the plain-text status page
package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"replywatch/internal/modkit/httpkit"
	"replywatch/internal/platform/store"
	"replywatch/internal/sched"
)

// RunnerStatus pairs a display name with a background runner
type RunnerStatus struct {
	Name   string
	Runner *sched.Runner
}

// Deps are the handler dependencies
type Deps struct {
	// Service is the display name on the first line
	Service string

	// Started is the process start time, drives the uptime line
	Started time.Time

	// DB reports storage readiness, nil skips the line
	DB store.Pinger

	// Runners are reported one line each
	Runners []RunnerStatus
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the status route
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d, now: time.Now}
	r.Get("/", httpkit.Handle(h.status))
}

// status renders one line per concern. It is plain text on purpose, the
// page is read by humans and uptime probes
func (h *handlers) status(r *http.Request) httpkit.Response {
	var b strings.Builder

	fmt.Fprintf(&b, "%s ok\n", h.deps.Service)
	fmt.Fprintf(&b, "uptime: %s\n", h.now().Sub(h.deps.Started).Round(time.Second))

	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(r.Context()); err != nil {
			fmt.Fprintf(&b, "db: error: %v\n", err)
		} else {
			b.WriteString("db: ok\n")
		}
	}

	for _, rs := range h.deps.Runners {
		hs := rs.Runner.Health()
		switch {
		case hs.RunCount == 0:
			fmt.Fprintf(&b, "%s: waiting for first run\n", rs.Name)
		case hs.LastErr != nil:
			fmt.Fprintf(&b, "%s: error: %v (last run %s)\n", rs.Name, hs.LastErr, hs.LastRun.UTC().Format(time.RFC3339))
		default:
			fmt.Fprintf(&b, "%s: ok (runs %d, last run %s)\n", rs.Name, hs.RunCount, hs.LastRun.UTC().Format(time.RFC3339))
		}
	}

	return httpkit.Text(http.StatusOK, b.String())
}
