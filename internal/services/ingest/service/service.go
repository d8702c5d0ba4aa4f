// Package service contains the comment ingestion workflow
package service

import (
	"context"
	"time"

	"replywatch/internal/adapters/source/wordpress"
	"replywatch/internal/bridge"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/repokit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/logger"
	"replywatch/internal/services/ingest/domain"
	"replywatch/internal/services/ingest/repo"
)

// Source is the page fetch seam the workflow drives
type Source interface {
	PageAsync(ctx context.Context, page int, after time.Time) *bridge.Cell[[]wordpress.Comment]
}

// Config bounds one ingestion run
type Config struct {
	// MaxPages caps how many pages a single run will pull
	MaxPages int

	// PageTimeout bounds the wait for one page fetch
	PageTimeout time.Duration
}

// Svc runs the ingestion workflow
type Svc struct {
	deps   modkit.Deps
	src    Source
	binder repokit.Binder[repo.Repo]
	cfg    Config
	log    logger.Logger
}

// New constructs the ingest service
func New(deps modkit.Deps, src Source, cfg Config) *Svc {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 5 * time.Minute
	}
	return &Svc{
		deps:   deps,
		src:    src,
		binder: repo.NewPG(),
		cfg:    cfg,
		log:    *logger.Named("ingest"),
	}
}

// RunOnce pulls every new comment since the stored watermark inside one
// transaction. Any failure rolls the whole run back; the next run starts
// from the same watermark
func (s *Svc) RunOnce(ctx context.Context) error {
	var inserted int
	err := s.deps.PG.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		// the advisory lock serializes concurrent ingesters before the
		// watermark read so no two runs insert the same window
		if err := r.LockIngest(ctx); err != nil {
			return err
		}
		start, err := r.Watermark(ctx)
		if err != nil {
			return err
		}
		after := time.Unix(start, 0)

		// authors seen this run, so parent lookups hit memory before sql
		authors := map[int64]string{}
		maxSeen := start

		for page := 1; page <= s.cfg.MaxPages; page++ {
			comments, err := s.src.PageAsync(ctx, page, after).Wait(s.cfg.PageTimeout)
			if err != nil {
				return err
			}
			if len(comments) == 0 {
				break
			}
			for _, c := range comments {
				if c.TS < maxSeen {
					return perr.Orderingf(
						"comment %d at ts %d regressed below run max %d on page %d",
						c.ID, c.TS, maxSeen, page)
				}
				maxSeen = c.TS
				authors[c.ID] = c.AuthorName

				targets, err := s.replyTargets(ctx, r, authors, c)
				if err != nil {
					return err
				}
				if err := r.InsertComment(ctx, domain.StoredComment{
					ID:        c.ID,
					Payload:   c.Raw,
					TS:        c.TS,
					InReplyTo: targets,
				}); err != nil {
					return err
				}
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if inserted > 0 {
		s.log.Info().Int("comments", inserted).Msg("ingested")
	}
	return nil
}

// replyTargets merges the parent comment's author with @-mentions, distinct,
// parent first. A parent missing from cache and store contributes nothing
func (s *Svc) replyTargets(
	ctx context.Context,
	r repo.Repo,
	authors map[int64]string,
	c wordpress.Comment,
) ([]string, error) {
	var targets []string
	if c.Parent != 0 {
		name, ok := authors[c.Parent]
		if !ok {
			var err error
			name, err = r.AuthorNameByID(ctx, c.Parent)
			if err != nil {
				if perr.IsCode(err, perr.ErrorCodeNotFound) {
					name = ""
				} else {
					return nil, err
				}
			}
			// memoize, unknown parents included, so siblings skip the lookup
			authors[c.Parent] = name
		}
		if name != "" {
			targets = append(targets, name)
		}
	}
	for _, m := range Mentions(c.HTML) {
		dup := false
		for _, t := range targets {
			if t == m {
				dup = true
				break
			}
		}
		if !dup {
			targets = append(targets, m)
		}
	}
	return targets, nil
}
