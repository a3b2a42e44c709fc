package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/cuongceg/symbiot/internal/bridge"
	"github.com/cuongceg/symbiot/internal/config"
	"github.com/cuongceg/symbiot/internal/logging"
	"github.com/cuongceg/symbiot/internal/metrics"
	"github.com/cuongceg/symbiot/internal/stream"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	verbose        int
	quiet          int
	debug          bool
	metricsAddr    string
	embeddedBroker string
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "symbiot CONFIG_FILE",
		Short:         "MQTT topic provider for IoT projects",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.ErrOrStderr(), args[0], o)
		},
	}
	f := cmd.Flags()
	f.CountVarP(&o.verbose, "verbose", "v", "increase verbosity (can be specified multiple times)")
	f.CountVarP(&o.quiet, "quiet", "q", "decrease verbosity (can be specified multiple times)")
	f.BoolVar(&o.debug, "debug", false, "show full errors and third-party logs")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&o.embeddedBroker, "embedded-broker", "", "start an in-process NATS server on host:port")
	return cmd
}

// Execute runs the root command, printing any failure.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func run(ctx context.Context, stderr io.Writer, path string, o options) error {
	log := logging.Setup(stderr, o.verbose-o.quiet, o.debug)

	err := runBridge(ctx, log, path, o)
	if err != nil && o.debug {
		log.Error().Err(err).Msg("bridge failed")
	}
	return err
}

func runBridge(ctx context.Context, log zerolog.Logger, path string, o options) error {
	doc, err := config.Load(path)
	if err != nil {
		return err
	}

	if o.embeddedBroker != "" {
		so := stream.Options{BindAddress: o.embeddedBroker}
		if o.debug {
			so.Logs = &log
		}
		srv, err := stream.StartEmbeddedServer(so)
		if err != nil {
			return fmt.Errorf("embedded broker: %w", err)
		}
		defer srv.Shutdown()
		log.Info().Str("url", srv.URL()).Msg("embedded broker started")
	}

	if o.metricsAddr != "" {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(mctx, o.metricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	b, err := bridge.New(doc, bridge.WithLogger(log))
	if err != nil {
		return err
	}

	log.Info().Strs("receivers", b.Receivers()).Msg("starting bridge")
	defer log.Info().Msg("bridge stopped")

	err = b.Run(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
