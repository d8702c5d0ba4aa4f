package store

import (
	"context"

	"replywatch/internal/platform/errors"
)

// AdvisoryXactLock takes a transaction-scoped advisory lock keyed by name.
// It blocks until the lock is granted and releases automatically at
// commit or rollback, so q must be a transaction querier
func AdvisoryXactLock(ctx context.Context, q RowQuerier, name string) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return errors.FromPostgresf(err, "advisory lock %q", name)
	}
	return nil
}
