// Package module wires the digest service and exposes its ports
package module

import (
	"time"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	"replywatch/internal/sched"
	"replywatch/internal/services/digest/service"
)

// Ports exposes the digest module surface for cross wiring
type Ports struct {
	Runner *sched.Runner
}

// Module defines the digest module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the digest module from config
func New(deps modkit.Deps, sender mail.Sender) *Module {
	dig := deps.Cfg.Prefix("DIGEST_")

	svc := service.New(deps, sender, service.Config{
		PublicURL: deps.Cfg.MustURL("PUBLIC_URL").String(),
		Subject:   dig.MayString("SUBJECT", ""),
	})

	runner := sched.NewRunner("digest", svc,
		dig.MayDuration("SHORT_DELAY", 10*time.Minute),
		dig.MayDuration("LONG_DELAY", 5*time.Minute),
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "digest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes returns no HTTP routes for digest (it's a scheduler service)
func (m *Module) MountRoutes(_ httpkit.Router) {}
