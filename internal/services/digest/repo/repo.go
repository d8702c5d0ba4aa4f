// Package repo provides the digest persistence surface
package repo

import (
	"context"

	"replywatch/internal/modkit/repokit"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/digest/domain"
)

// Repo is the digest persistence surface used by the service layer
type Repo interface {
	// EnsureCursor creates the singleton cursor row if missing, seeded at ts
	EnsureCursor(ctx context.Context, ts int64) error

	// LockCursor reads the cursor under FOR UPDATE so concurrent digest
	// transactions serialize on the row
	LockCursor(ctx context.Context) (int64, error)

	// MatchesSince returns every comment past since joined with the
	// subscriptions its reply targets match, ordered by comment ts
	MatchesSince(ctx context.Context, since int64) ([]domain.Match, error)

	// MaxCommentTS returns the highest stored comment timestamp, 0 when empty
	MaxCommentTS(ctx context.Context) (int64, error)

	// AdvanceCursor moves the cursor to ts
	AdvanceCursor(ctx context.Context, ts int64) error
}

type (
	// PG is a Postgres implementation of the digest repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) EnsureCursor(ctx context.Context, ts int64) error {
	const sql = `INSERT INTO digest_cursor (id, ts) VALUES (0, $1) ON CONFLICT (id) DO NOTHING`
	_, err := r.q.Exec(ctx, sql, ts)
	return err
}

func (r *queries) LockCursor(ctx context.Context) (int64, error) {
	return store.Scalar[int64](ctx, r.q, `SELECT ts FROM digest_cursor WHERE id = 0 FOR UPDATE`)
}

func (r *queries) MatchesSince(ctx context.Context, since int64) ([]domain.Match, error) {
	const sql = `
		SELECT c.id, c.ts, c.payload, s.id::text, s.author_name, s.email
		FROM comments c
		JOIN subscriptions s ON s.author_name = ANY(c.in_reply_to)
		WHERE c.ts > $1
		ORDER BY c.ts, c.id
	`
	return store.Many(ctx, r.q, func(rows store.Rows) (domain.Match, error) {
		var m domain.Match
		err := rows.Scan(&m.CommentID, &m.TS, &m.Payload, &m.SubscriptionID, &m.AuthorName, &m.Email)
		return m, err
	}, sql, since)
}

func (r *queries) MaxCommentTS(ctx context.Context) (int64, error) {
	return store.Scalar[int64](ctx, r.q, `SELECT coalesce(max(ts), 0) FROM comments`)
}

func (r *queries) AdvanceCursor(ctx context.Context, ts int64) error {
	_, err := r.q.Exec(ctx, `UPDATE digest_cursor SET ts = $1 WHERE id = 0`, ts)
	return err
}
