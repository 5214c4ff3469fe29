package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/logger"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(&config.Config{})
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg)

	if cfg.RabbitMQURL == "" {
		log.Fatal().Msg("RABBITMQ_URL is required")
	}

	rabbit, err := notify.NewRabbitClient(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQQueue, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rabbit.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.RabbitMQQueue).Msg("notifier started")
	if err := rabbit.Consume(ctx, notify.LogDispatcher(&log)); err != nil {
		log.Error().Err(err).Msg("notifier stopped with error")
		return
	}
	log.Info().Msg("notifier stopped")
}
