// Package module wires the subscriptions service into the API
package module

import (
	"net/http"
	"time"

	"replywatch/internal/adapters/mail"
	modkit "replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	str "replywatch/internal/platform/strings"
	subhttp "replywatch/internal/services/subscriptions/http"
	"replywatch/internal/services/subscriptions/service"
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

// New constructs a subscriptions module with the provided dependencies and options
func New(deps modkit.Deps, sender mail.Sender, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("subscriptions"),
		modkit.WithPrefix("/"),
	}, opts...)...)

	sub := deps.Cfg.Prefix("SUBSCRIPTIONS_")
	svc := service.New(deps, sender, service.Config{
		PublicURL:  deps.Cfg.MustURL("PUBLIC_URL").String(),
		TokenTTL:   sub.MayDuration("TOKEN_TTL", 24*time.Hour),
		RateLimit:  sub.MayInt("RATE_LIMIT", 5),
		RateWindow: sub.MayDuration("RATE_WINDOW", time.Hour),
		ResendBase: sub.MayDuration("RESEND_BASE", 30*time.Second),
	})

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		svc:    svc,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		subhttp.Register(r, subhttp.Deps{Svc: svc})
		if external != nil {
			external(r)
		}
	}

	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.prefix == "" || m.prefix == "/" {
		// root mounted, group so middlewares stay module scoped
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
func (m *Module) Name() string { return str.MustString(m.name, "subscriptions") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return m.svc }
