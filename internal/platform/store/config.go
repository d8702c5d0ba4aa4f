package store

import (
	"time"

	"replywatch/internal/platform/config"
)

// PGConfig holds the postgres pool settings
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32

	// SlowMs marks queries at or above the threshold as slow in logs
	SlowMs int64

	// LogSQL enables sql statement logging via the tracer
	LogSQL bool

	// ConnectTimeout bounds the initial ping loop
	ConnectTimeout time.Duration
}

// Config is the root config for the Store facade
type Config struct {
	PG PGConfig
}

// FromConf builds a Config from SERVICE_PGSQL_* keys
func FromConf(cfg config.Conf) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	return Config{
		PG: PGConfig{
			Enabled:        true,
			URL:            pg.MustString("DBURL"),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)), // #nosec G115
			SlowMs:         int64(pg.MayInt("SLOW_MS", 200)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			ConnectTimeout: pg.MayDuration("CONNECT_TIMEOUT", 30*time.Second),
		},
	}
}
