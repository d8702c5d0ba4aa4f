package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"replywatch/internal/platform/logger"
)

// TracerOptions controls what the query tracer reports
type TracerOptions struct {
	// LogSQL logs every statement at debug level
	LogSQL bool

	// SlowMs marks queries at or above the threshold as slow (warn level)
	SlowMs int64
}

// Tracer implements pgx.QueryTracer with slow query detection
type Tracer struct {
	log  logger.Logger
	opts TracerOptions
}

// NewTracer builds a Tracer bound to log
func NewTracer(log logger.Logger, opts TracerOptions) *Tracer {
	return &Tracer{log: log, opts: opts}
}

type traceCtxKey struct{}

type traceStart struct {
	sql   string
	begin time.Time
}

// TraceQueryStart records the statement and start time on the context
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.opts.LogSQL {
		t.log.Debug().Str("sql", data.SQL).Int("args", len(data.Args)).Msg("pg query")
	}
	return context.WithValue(ctx, traceCtxKey{}, traceStart{sql: data.SQL, begin: time.Now()})
}

// TraceQueryEnd reports failures and slow queries
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	st, ok := ctx.Value(traceCtxKey{}).(traceStart)
	if !ok {
		return
	}
	elapsed := time.Since(st.begin)

	if data.Err != nil {
		t.log.Error().Err(data.Err).Str("sql", st.sql).Dur("elapsed", elapsed).Msg("pg query failed")
		return
	}
	if t.opts.SlowMs > 0 && elapsed >= time.Duration(t.opts.SlowMs)*time.Millisecond {
		t.log.Warn().Str("sql", st.sql).Dur("elapsed", elapsed).Msg("pg slow query")
	}
}
