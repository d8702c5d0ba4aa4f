package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"replywatch/internal/platform/errors"
)

// pgAdapter adapts a pgxpool.Pool to the TxRunner seam
type pgAdapter struct {
	pool *pgxpool.Pool
}

func newPGAdapter(pool *pgxpool.Pool) *pgAdapter { return &pgAdapter{pool: pool} }

// tagAdapter adapts pgconn.CommandTag to CommandTag
type tagAdapter struct{ t pgconn.CommandTag }

func (a tagAdapter) String() string      { return a.t.String() }
func (a tagAdapter) RowsAffected() int64 { return a.t.RowsAffected() }

// rowsAdapter adapts pgx.Rows to Rows
type rowsAdapter struct{ r pgx.Rows }

func (a rowsAdapter) Next() bool            { return a.r.Next() }
func (a rowsAdapter) Scan(dest ...any) error { return a.r.Scan(dest...) }
func (a rowsAdapter) Err() error            { return a.r.Err() }
func (a rowsAdapter) Close()                { a.r.Close() }

func (p *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	t, err := p.pool.Exec(ctx, sql, args...)
	return tagAdapter{t}, err
}

func (p *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{r}, nil
}

func (p *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Conn pins fn to one pooled connection. Session-scoped state such as
// advisory locks taken by fn lives and dies with that connection
func (p *pgAdapter) Conn(ctx context.Context, fn func(q RowQuerier) error) error {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return errors.FromPostgres(err, "acquire connection")
	}
	defer c.Release()
	return fn(connQuerier{c: c})
}

// Tx wraps fn in begin/commit. Any error from fn rolls the transaction
// back and is returned unchanged
func (p *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.FromPostgres(err, "begin tx")
	}
	if err := fn(txQuerier{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.FromPostgres(err, "commit tx")
	}
	return nil
}

func (p *pgAdapter) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }
func (p *pgAdapter) Close() error                   { p.pool.Close(); return nil }

// txQuerier is the RowQuerier bound to one open transaction
type txQuerier struct{ tx pgx.Tx }

func (q txQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	t, err := q.tx.Exec(ctx, sql, args...)
	return tagAdapter{t}, err
}

func (q txQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := q.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{r}, nil
}

func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.tx.QueryRow(ctx, sql, args...)
}

// connQuerier is the RowQuerier bound to one acquired connection
type connQuerier struct{ c *pgxpool.Conn }

func (q connQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	t, err := q.c.Exec(ctx, sql, args...)
	return tagAdapter{t}, err
}

func (q connQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := q.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{r}, nil
}

func (q connQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.c.QueryRow(ctx, sql, args...)
}
