// Package api assembles the HTTP surface for the application
package api

import (
	"replywatch/internal/platform/config"
	phttp "replywatch/internal/platform/net/http"
	"replywatch/internal/platform/store"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/httpkit"
	"replywatch/internal/modkit/module"
	"replywatch/internal/modkit/swaggerkit"
	"replywatch/internal/sched"

	digestmod "replywatch/internal/services/digest/module"
	ingestmod "replywatch/internal/services/ingest/module"
	metahttp "replywatch/internal/services/meta/http"
	metamod "replywatch/internal/services/meta/module"
	repliesmod "replywatch/internal/services/replies/module"
	submod "replywatch/internal/services/subscriptions/module"
)

// Options are the API options
type Options struct {
	Config        config.Conf
	Store         *store.Store
	Mail          mail.Sender
	EnableSwagger bool
}

// Runners are the background loops main is expected to start
type Runners struct {
	Ingest *sched.Runner
	Digest *sched.Runner
}

// Mount wires every module onto the given router and returns the runners
func Mount(r phttp.Router, opt Options) Runners {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}

	// scheduler modules first so their runner ports can feed the status page
	ingest := ingestmod.New(deps)
	digest := digestmod.New(deps, opt.Mail)

	ingestRunner := module.MustPortsOf[ingestmod.Ports](ingest).Runner
	digestRunner := module.MustPortsOf[digestmod.Ports](digest).Runner

	var db store.Pinger
	if p, ok := opt.Store.PG.(store.Pinger); ok {
		db = p
	}

	mods := []module.Module{
		metamod.New(db, []metahttp.RunnerStatus{
			{Name: "ingest", Runner: ingestRunner},
			{Name: "digest", Runner: digestRunner},
		}),
		repliesmod.New(deps),
		submod.New(deps, opt.Mail),
		ingest,
		digest,
	}

	stack := httpkit.CommonStack()
	r.Group(func(root phttp.Router) {
		root.Use(stack...)

		swaggerkit.Mount(root, opt.EnableSwagger)

		for _, m := range mods {
			m.MountRoutes(root)
		}
	})

	return Runners{Ingest: ingestRunner, Digest: digestRunner}
}
