package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"replywatch/internal/platform/config"
	"replywatch/internal/platform/logger"
	phttp "replywatch/internal/platform/net/http"
	"replywatch/internal/platform/store"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/bridge"
	"replywatch/internal/services/api"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConf(root))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}

	sender := mail.NewHTTPSender(mail.HTTPOptionsFromConf(root))

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	runners := api.Mount(srv.Router(), api.Options{
		Config:        root,
		Store:         st,
		Mail:          sender,
		EnableSwagger: apiCfg.MayBool("SWAGGER", true),
	})

	// background loops, each survives its own failures
	bridge.Go(ctx, "ingest", runners.Ingest.Run)
	bridge.Go(ctx, "digest", runners.Digest.Run)

	// shutdown hook: drain http first, then the store
	go func() {
		<-ctx.Done()
		l.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}

	if err := st.Close(context.Background()); err != nil {
		l.Error().Err(err).Msg("failed to close store")
	}
}
