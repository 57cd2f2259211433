package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/agent"
	"github.com/idudko/mendel/internal/logging"
)

func main() {
	cfg, err := loadConfig(flag.NewFlagSet(os.Args[0], flag.ContinueOnError), os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if _, err := logging.Setup(cfg.LogLevel, ""); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := agent.NewSender(cfg.Address, cfg.Topic, cfg.Key, agent.RetryIntervals)
	svc := agent.NewService(agent.NewCollector(), sender, agent.Config{
		PollInterval:   cfg.PollInterval,
		ReportInterval: cfg.ReportInterval,
		RateLimit:      cfg.RateLimit,
	})

	log.Info().
		Str("endpoint", sender.Endpoint()).
		Str("agent_id", sender.AgentID()).
		Dur("poll", cfg.PollInterval).
		Dur("report", cfg.ReportInterval).
		Msg("agent started")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("agent failed")
	}
	log.Info().Msg("agent stopped")
}
