// Package service answers reply-listing queries
package service

import (
	"context"
	"encoding/json"

	"replywatch/internal/modkit"
	"replywatch/internal/modkit/repokit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/services/replies/domain"
	"replywatch/internal/services/replies/repo"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// Svc implements domain.RepliesPort
type Svc struct {
	deps   modkit.Deps
	binder repokit.Binder[repo.Repo]
}

// New constructs the replies service
func New(deps modkit.Deps) *Svc {
	return &Svc{deps: deps, binder: repo.NewPG()}
}

// Replies lists the stored payloads addressed to q.AuthorName since q.From.
// Page defaults to 1, PageSize to 100 and is capped at 500
func (s *Svc) Replies(ctx context.Context, q domain.Query) ([]json.RawMessage, error) {
	if q.AuthorName == "" {
		return nil, perr.Validationf("author_name is required")
	}
	if q.From < 0 {
		return nil, perr.Validationf("from must not be negative")
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = defaultPageSize
	case q.PageSize > maxPageSize:
		return nil, perr.Validationf("page_size must be at most %d", maxPageSize)
	}
	offset := (q.Page - 1) * q.PageSize

	var out []json.RawMessage
	err := repokit.WithConn(ctx, s.deps.PG, func(qr repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(qr).RepliesTo(ctx, q.AuthorName, q.From, q.PageSize, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}
