package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/idudko/mendel/internal/config"
	"github.com/idudko/mendel/internal/configure"
	"github.com/idudko/mendel/internal/handler"
	"github.com/idudko/mendel/internal/ingest"
	"github.com/idudko/mendel/internal/logging"
	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/natsclient"
	"github.com/idudko/mendel/internal/pipeline"
	"github.com/idudko/mendel/internal/publish"
	"github.com/idudko/mendel/internal/service"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("mendel stopped")
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := parseFlags(flag.NewFlagSet("mendel", flag.ContinueOnError), args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logs, err := logging.Setup(cfg.Mendel.Logging.Level, cfg.Mendel.Logging.Filename)
	if err != nil {
		return err
	}
	defer logs.Close()

	rt, err := configure.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	if flags.NoRun {
		log.Info().Msg("configured, not running")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	sinks := publish.NewSubject()
	var nc *natsclient.Client
	if cfg.NATS.URL != "" {
		nc, err = natsclient.Connect(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			ReconnectWait: cfg.NATS.ReconnectWait,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			return err
		}
		sinks.Attach(nc)
	}
	attachSinks(sinks, cfg.Publish)
	if sinks.Len() == 0 {
		log.Warn().Msg("no publish sinks configured, results are discarded")
	}

	p := pipeline.New(pipeline.Config{
		QueueSlots: cfg.Pipeline.QueueSlots,
		Spins:      cfg.Pipeline.Spins,
	}, rt.Values, rt.Actions, sinks, m)
	router := ingest.NewRouter(rt.Routes, p, m)

	if nc != nil {
		if err := nc.Subscribe(router); err != nil {
			nc.Close()
			return err
		}
	}

	rc := handler.RouterConfig{
		Key:           cfg.HTTP.Key,
		TrustedSubnet: cfg.HTTP.TrustedSubnet,
		Gatherer:      reg,
	}
	if nc != nil {
		rc.Pinger = nc
	}
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: handler.NewRouter(handler.NewHandler(service.NewValuesService(rt.Values, router), cfg.HTTP.Key), rc),
	}

	// The pipeline outlives ctx: it is stopped only after HTTP and NATS have
	// stopped handing it messages.
	pipeCtx, stopPipeline := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPipeline()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(pipeCtx)
	})
	g.Go(func() error {
		log.Info().Str("address", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopPipeline()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if nc != nil {
			if derr := nc.DrainSubscriptions(shutdownCtx); derr != nil {
				log.Warn().Err(derr).Msg("nats subscriptions not drained")
			}
		}
		return err
	})

	err = g.Wait()
	if nc != nil {
		if cerr := nc.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("nats close")
		}
	}
	log.Info().Msg("mendel stopped")
	return err
}

func attachSinks(s *publish.Subject, cfg config.Publish) {
	if cfg.File != "" {
		s.Attach(publish.NewFileSink(cfg.File))
	}
	if cfg.Webhook != "" {
		s.Attach(publish.NewWebhookSink(cfg.Webhook, publish.RetryIntervals))
	}
	if cfg.Log {
		s.Attach(publish.LogSink{})
	}
}
