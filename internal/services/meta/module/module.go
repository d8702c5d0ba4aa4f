// Package module wires the status page into the API
package module

import (
	"net/http"
	"time"

	modkit "replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	"replywatch/internal/platform/store"
	str "replywatch/internal/platform/strings"
	metahttp "replywatch/internal/services/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	name     string
	prefix   string
	mws      []func(http.Handler) http.Handler
	register func(httpkit.Router)
}

// New constructs the meta module. db may be nil when storage is disabled
func New(db store.Pinger, runners []metahttp.RunnerStatus, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/"),
	}, opts...)...)

	d := metahttp.Deps{
		Service: "replywatch",
		Started: time.Now(),
		DB:      db,
		Runners: runners,
	}

	m := &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, d)
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
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
