package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"replywatch/internal/platform/errors"
	"replywatch/internal/platform/store/pg"
)

// openPG builds the pgx pool, waits for it to answer pings, and wraps it
// in the adapter that satisfies TxRunner
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.PG.URL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorCodeDB, "parse postgres url")
	}
	if cfg.PG.MaxConns > 0 {
		pcfg.MaxConns = cfg.PG.MaxConns
	}
	pcfg.ConnConfig.Tracer = pg.NewTracer(s.Log, pg.TracerOptions{
		LogSQL: cfg.PG.LogSQL,
		SlowMs: cfg.PG.SlowMs,
	})

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorCodeDB, "create postgres pool")
	}

	deadline := time.Now().Add(cfg.PG.ConnectTimeout)
	backoff := 250 * time.Millisecond
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			pool.Close()
			return nil, errors.Wrapf(err, errors.ErrorCodeUnavailable, "postgres not reachable after %s", cfg.PG.ConnectTimeout)
		}
		s.Log.Warn().Err(err).Dur("backoff", backoff).Msg("postgres ping failed, retrying")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, errors.Wrap(ctx.Err(), errors.ErrorCodeUnavailable, "postgres connect canceled")
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}

	return newPGAdapter(pool), nil
}
