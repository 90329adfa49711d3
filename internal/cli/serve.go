package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brutalist/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the engine and the local HTTP API.

The engine starts signed out on the local snapshot. POST /api/session with a
bearer token signs a user in and switches to that user's remote data.

Example:
  brutalist serve --config brutalist.yaml
  brutalist serve --addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	a, err := bootstrap(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("error closing resources")
		}
	}()

	addr := a.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if a.tokens == nil {
		a.logger.Warn().Msg("auth.jwt_secret not set, session routes disabled")
	}

	srv := httpapi.New(a.engine, httpapi.Options{
		Logger:    a.logger,
		Tokens:    a.tokens,
		Sessions:  a.hub,
		RateLimit: a.cfg.HTTP.RateLimit,
		Burst:     a.cfg.HTTP.Burst,
	})

	// Use the command's context if set (tests), otherwise a fresh one.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	runDone := make(chan error, 1)
	go func() { runDone <- a.engine.Run(ctx) }()

	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.Start(addr) }()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-srvDone:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown")
	}
	<-runDone

	if serveErr != nil {
		return WrapExitError(ExitCommandError, "http server failed", serveErr)
	}
	a.logger.Info().Msg("stopped gracefully")
	return nil
}
