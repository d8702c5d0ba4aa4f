// Package module wires the replies service into the API
package module

import (
	"net/http"

	modkit "replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	str "replywatch/internal/platform/strings"
	rephttp "replywatch/internal/services/replies/http"
	"replywatch/internal/services/replies/service"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	svc      *service.Svc
	register func(httpkit.Router)
}

// New constructs a replies module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("replies"),
		modkit.WithPrefix("/"),
	}, opts...)...)

	svc := service.New(deps)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		svc:    svc,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		rephttp.Register(r, rephttp.Deps{Svc: svc})
		if external != nil {
			external(r)
		}
	}

	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.prefix == "" || m.prefix == "/" {
		r.Group(func(rr httpkit.Router) {
			for _, mw := range m.mws {
				rr.Use(mw)
			}
			m.register(rr)
		})
		return
	}
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "replies") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return m.svc }
