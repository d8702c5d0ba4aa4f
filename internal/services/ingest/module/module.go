// Package module wires the ingest service and exposes its ports
package module

import (
	"time"

	"replywatch/internal/adapters/source/wordpress"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	"replywatch/internal/sched"
	"replywatch/internal/services/ingest/service"
)

// Ports exposes the ingest module surface for cross wiring
type Ports struct {
	Runner *sched.Runner
}

// Module defines the ingest module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the ingest module from config
func New(deps modkit.Deps) *Module {
	ing := deps.Cfg.Prefix("INGEST_")

	src := wordpress.NewClient(wordpress.OptionsFromConf(deps.Cfg))
	svc := service.New(deps, src, service.Config{
		MaxPages:    ing.MayInt("MAX_PAGES", 10),
		PageTimeout: ing.MayDuration("PAGE_TIMEOUT", 5*time.Minute),
	})

	runner := sched.NewRunner("ingest", svc,
		ing.MayDuration("SHORT_DELAY", 30*time.Second),
		ing.MayDuration("LONG_DELAY", 5*time.Minute),
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes returns no HTTP routes for ingest (it's a scheduler service)
func (m *Module) MountRoutes(_ httpkit.Router) {}
