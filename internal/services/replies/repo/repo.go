// Package repo provides the replies read path
package repo

import (
	"context"
	"encoding/json"

	"replywatch/internal/modkit/repokit"
	"replywatch/internal/platform/store"
)

// Repo is the replies persistence surface used by the service layer
type Repo interface {
	// RepliesTo returns stored payloads addressed to authorName with
	// ts >= from, ordered by timestamp then id
	RepliesTo(ctx context.Context, authorName string, from int64, limit, offset int) ([]json.RawMessage, error)
}

type (
	// PG is a Postgres implementation of the replies repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) RepliesTo(ctx context.Context, authorName string, from int64, limit, offset int) ([]json.RawMessage, error) {
	const sql = `
		SELECT payload
		FROM comments
		WHERE $1 = ANY(in_reply_to) AND ts >= $2
		ORDER BY ts, id
		LIMIT $3 OFFSET $4
	`
	return store.Many(ctx, r.q, func(rows store.Rows) (json.RawMessage, error) {
		var p json.RawMessage
		err := rows.Scan(&p)
		return p, err
	}, sql, authorName, from, limit, offset)
}
