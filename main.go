package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	classifierx "github.com/ordertalk/ordertalk/dialog/classifier"
	enginex "github.com/ordertalk/ordertalk/dialog/engine"
	statex "github.com/ordertalk/ordertalk/dialog/state"
	storex "github.com/ordertalk/ordertalk/dialog/store"
	configx "github.com/ordertalk/ordertalk/pkg/config"
	_ "github.com/ordertalk/ordertalk/pkg/logger/autoload"
	openaix "github.com/ordertalk/ordertalk/pkg/openaix"
	postgresx "github.com/ordertalk/ordertalk/pkg/postgres"
	serverx "github.com/ordertalk/ordertalk/server"
)

type AppConfig struct {
	RedisURL   string        `envconfig:"REDIS_URL"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	postgresCfg := configx.MustNew[postgresx.Config]("POSTGRES")
	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := postgresx.MustNew(ctx, *postgresCfg)
	defer db.Close()

	sessions, err := newSessionStore(appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}

	openaiClient := openaix.NewClient(*openaiCfg)
	if openaiClient == nil {
		log.Fatal().Msg("openai api key is required")
	}
	classifier, err := classifierx.New(openaiClient, *openaiCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("classifier init failed")
	}

	engine, err := enginex.New(sessions, storex.NewDirectory(db), storex.NewOrderStore(db), classifier)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	httpServer := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           serverx.New(engine).Router(),
		ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
	}

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func newSessionStore(cfg *AppConfig) (statex.Store, error) {
	if cfg.RedisURL == "" {
		return statex.NewMemoryStore(cfg.SessionTTL), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return statex.NewRedisStore(redis.NewClient(opts), statex.WithTTL(cfg.SessionTTL))
}
