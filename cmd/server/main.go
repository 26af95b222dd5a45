package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/menuboard/api/internal/config"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/logger"
	"github.com/menuboard/api/internal/notify"
	"github.com/menuboard/api/internal/router"
	"github.com/menuboard/api/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
		log.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("unable to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("unable to ping database")
	}
	log.Info("connected to database")

	hub := ws.NewHub(log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })

	var publishers []notify.Publisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		relay := notify.NewRedisRelay(rdb, hub, log)
		publishers = append(publishers, relay)
		g.Go(func() error { return relay.Run(gctx) })
		log.WithField("addr", cfg.RedisAddr).Info("redis relay enabled")
	}
	if cfg.KafkaEnabled {
		stream := notify.NewKafkaStream(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer stream.Close()
		publishers = append(publishers, stream)
		log.WithField("topic", cfg.KafkaTopic).Info("kafka change stream enabled")
	}
	notifier := notify.NewFanout(hub, log, publishers...)
	g.Go(func() error { return notifier.Run(gctx) })

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, pool, hub, notifier, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	log.Info("server stopped")
}
