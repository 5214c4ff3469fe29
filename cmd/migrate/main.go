package main

import (
	"context"
	"flag"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/database"
	"github.com/JonasLeetTheWay/eventreg-go/internal/logger"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/reconcile"
)

func main() {
	seed := flag.Bool("seed", false, "insert sample data after migrating")
	destroy := flag.Bool("d", false, "delete all data after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New(&config.Config{})
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg)

	// Connect also migrates
	db, err := database.Connect(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	switch {
	case *destroy:
		if err := database.DestroyData(db); err != nil {
			log.Fatal().Err(err).Msg("failed to destroy data")
		}
		log.Info().Msg("data destroyed")
	case *seed:
		if err := database.SeedData(db, &log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed data")
		}
		report, err := reconcile.NewService(db, &log).ReconcileAll(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reconcile seat counters")
		}
		log.Info().Int64("events", report.Checked).Int64("repaired", report.Repaired).Msg("data seeded")
	default:
		log.Info().Msg("database migrated")
	}
}
