package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"replywatch/internal/platform/errors"
)

// Scalar runs a single-row query and scans the one column into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var v T
	if err := q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, errors.ErrNotFound
		}
		return v, errors.FromPostgres(err, "scalar query")
	}
	return v, nil
}

// One runs a single-row query and scans it via scan
func One(ctx context.Context, q RowQuerier, scan func(Row) error, sql string, args ...any) error {
	if err := scan(q.QueryRow(ctx, sql, args...)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.ErrNotFound
		}
		return errors.FromPostgres(err, "one query")
	}
	return nil
}

// Many runs a multi-row query and collects each row via scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Rows) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.FromPostgres(err, "many query")
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorCodeDB, "scan row")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.FromPostgres(err, "rows iteration")
	}
	return out, nil
}
