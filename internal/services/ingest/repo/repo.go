// Package repo provides the ingest persistence surface
package repo

import (
	"context"

	"replywatch/internal/modkit/repokit"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/ingest/domain"
)

// lockName serializes ingest runs across processes sharing the database
const lockName = "replywatch.ingest"

// Repo is the ingest persistence surface used by the service layer
type Repo interface {
	// LockIngest takes the ingest advisory lock for the enclosing transaction
	LockIngest(ctx context.Context) error

	// Watermark returns the highest stored comment timestamp, 0 when empty
	Watermark(ctx context.Context) (int64, error)

	// AuthorNameByID resolves the author of a stored comment
	// returns errors.ErrNotFound when the comment is unknown
	AuthorNameByID(ctx context.Context, id int64) (string, error)

	// InsertComment persists one comment with its reply targets
	InsertComment(ctx context.Context, c domain.StoredComment) error
}

type (
	// PG is a Postgres implementation of the ingest repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) LockIngest(ctx context.Context) error {
	return store.AdvisoryXactLock(ctx, r.q, lockName)
}

func (r *queries) Watermark(ctx context.Context) (int64, error) {
	return store.Scalar[int64](ctx, r.q, `SELECT coalesce(max(ts), 0) FROM comments`)
}

func (r *queries) AuthorNameByID(ctx context.Context, id int64) (string, error) {
	return store.Scalar[string](ctx, r.q,
		`SELECT payload->>'author_name' FROM comments WHERE id = $1`, id)
}

func (r *queries) InsertComment(ctx context.Context, c domain.StoredComment) error {
	const sql = `
		INSERT INTO comments (id, payload, ts, in_reply_to)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, sql, c.ID, c.Payload, c.TS, c.InReplyTo)
	return err
}
