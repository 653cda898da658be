package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/forwarder"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/health"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/httpapi"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/logging"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/metrics"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/routingtable"
)

// shutdownTimeout bounds the shutdown after a signal
const shutdownTimeout = 30 * time.Second

// runForwarder starts the forwarder and its status surfaces and blocks until
// ctx is cancelled. A cancellation is a requested shutdown, not an error.
func runForwarder(ctx context.Context, opts *rootOptions, stdout io.Writer) (err error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	loggers, err := logging.Setup(logging.Options{
		Dest:           opts.logDest,
		CompLevels:     opts.logComp,
		SyslogFacility: opts.syslogFacility,
		Verbose:        opts.verbose,
		Stdout:         stdout,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, loggers.Close()) }()

	logger := loggers.Forwarder
	logger.Info("lpar-forwarder starting", "version", version, "config", opts.configFile)

	table, err := routingtable.Compile(cfg.Forwarding)
	if err != nil {
		return err
	}

	connector, err := opts.connect(cfg, loggers)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	controller, err := forwarder.NewController(&forwarder.Config{
		Connector: connector,
		Matcher:   table,
		Logger:    logger,
		Metrics:   metrics.New(registry),
	})
	if err != nil {
		return err
	}

	if err := controller.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var apiServer *httpapi.Server
	var healthServer *health.Server
	if api := cfg.API; api != nil {
		if api.ListenAddress != "" {
			apiServer, err = httpapi.NewServer(controller, httpapi.Config{
				ListenAddress: api.ListenAddress,
				SecretKey:     api.SecretKey,
				Gatherer:      registry,
				Logger:        logger,
			})
			if err != nil {
				return multierr.Append(err, shutdown(controller, nil, nil))
			}
			g.Go(func() error {
				if err := apiServer.Start(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("status API: %w", err)
				}
				return nil
			})
		}
		if api.GRPCHealthAddress != "" {
			healthServer, err = health.NewServer(&health.Config{
				ListenAddress: api.GRPCHealthAddress,
				Logger:        logger,
			}, controller)
			if err == nil {
				err = healthServer.Start(gctx)
			}
			if err != nil {
				return multierr.Combine(err, shutdown(controller, apiServer, nil), g.Wait())
			}
		}
	}

	logger.Info("forwarder is up and running (press Ctrl-C to shut down)")

	// a failing status server ends the run like a signal does
	<-gctx.Done()
	logger.Info("shutting down forwarder")

	err = shutdown(controller, apiServer, healthServer)
	err = multierr.Append(g.Wait(), err)
	if err == nil {
		logger.Info("forwarder has been shut down")
	}
	return err
}

// shutdown stops the controller before the status surfaces so that they
// report the shutdown while it runs
func shutdown(controller *forwarder.Controller, apiServer *httpapi.Server, healthServer *health.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if healthServer != nil {
		healthServer.Drain()
	}
	err := controller.Shutdown(ctx)
	if healthServer != nil {
		healthServer.Stop()
	}
	if apiServer != nil {
		err = multierr.Append(err, apiServer.Stop(ctx))
	}
	return err
}
