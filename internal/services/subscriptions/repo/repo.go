// Package repo provides the subscriptions persistence surface
package repo

import (
	"context"

	"replywatch/internal/modkit/repokit"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/subscriptions/domain"
)

// Repo is the subscriptions persistence surface used by the service layer
type Repo interface {
	// InsertToken stores a verification token
	InsertToken(ctx context.Context, t domain.Token) error

	// TokenByID loads a token, errors.ErrNotFound when unknown
	TokenByID(ctx context.Context, id string) (domain.Token, error)

	// DeleteToken removes a token, single use
	DeleteToken(ctx context.Context, id string) error

	// PurgeExpiredTokens drops every token past its expiration
	PurgeExpiredTokens(ctx context.Context, now int64) error

	// InsertSubscription adds (email, author) idempotently
	InsertSubscription(ctx context.Context, email, authorName string) error

	// DeleteSubscription removes a subscription by id and email
	DeleteSubscription(ctx context.Context, id, email string) error
}

type (
	// PG is a Postgres implementation of the subscriptions repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) InsertToken(ctx context.Context, t domain.Token) error {
	const sql = `INSERT INTO tokens (id, email, expiration) VALUES ($1, $2, $3)`
	_, err := r.q.Exec(ctx, sql, t.ID, t.Email, t.Expiration)
	return err
}

func (r *queries) TokenByID(ctx context.Context, id string) (domain.Token, error) {
	var t domain.Token
	err := store.One(ctx, r.q, func(row store.Row) error {
		return row.Scan(&t.ID, &t.Email, &t.Expiration)
	}, `SELECT id::text, email, expiration FROM tokens WHERE id = $1`, id)
	return t, err
}

func (r *queries) DeleteToken(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	return err
}

func (r *queries) PurgeExpiredTokens(ctx context.Context, now int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM tokens WHERE expiration < $1`, now)
	return err
}

func (r *queries) InsertSubscription(ctx context.Context, email, authorName string) error {
	const sql = `
		INSERT INTO subscriptions (id, email, author_name)
		VALUES (gen_random_uuid(), $1, $2)
		ON CONFLICT (email, author_name) DO NOTHING
	`
	_, err := r.q.Exec(ctx, sql, email, authorName)
	return err
}

func (r *queries) DeleteSubscription(ctx context.Context, id, email string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND email = $2`, id, email)
	return err
}
