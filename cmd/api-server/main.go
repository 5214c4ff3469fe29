package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/database"
	"github.com/JonasLeetTheWay/eventreg-go/internal/logger"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
	"github.com/JonasLeetTheWay/eventreg-go/internal/payment"
	"github.com/JonasLeetTheWay/eventreg-go/internal/redis"
	"github.com/JonasLeetTheWay/eventreg-go/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config comes from cfg, fall back to defaults
		l := logger.New(&config.Config{})
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	deps := server.Deps{
		Config:    cfg,
		DB:        db,
		Log:       &log,
		Processor: payment.NewMockProcessor(cfg),
		Publisher: notify.Nop{},
	}

	if cfg.RedisEnabled {
		rdb := redis.NewClient(cfg)
		if err := rdb.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without admission locks and rate limits")
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			deps.Redis = rdb
		}
	}

	if cfg.RabbitMQURL != "" {
		rabbit, err := notify.NewRabbitClient(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQQueue, &log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, notifications disabled")
		} else {
			defer rabbit.Close()
			deps.Publisher = rabbit
		}
	}

	srv := server.New(deps)
	go srv.Reconciler.StartWorker(ctx, cfg.ReconcileInterval)

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("API server failed")
	}
	log.Info().Msg("API server stopped")
}
