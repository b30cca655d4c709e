package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/service/mcp"
	"github.com/m-mizutani/orgintel/pkg/usecase/graph"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)
	registry := newToolRegistry()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("ORGINTEL_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, policyFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, graphFlags(&cfg)...)
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Expose analytics and agents as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)
			logger := logging.From(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			var opts []mcp.Option
			if cfg.geminiProject != "" {
				uc, err := cfg.newChief(ctx, engine, registry)
				if err != nil {
					return err
				}
				opts = append(opts, mcp.WithChief(uc))
			}
			if cfg.neo4jURI != "" || cfg.firestoreProject != "" {
				g, err := cfg.newGraph(ctx)
				if err != nil {
					return err
				}
				defer closeGraph(ctx, g)
				opts = append(opts, mcp.WithGraph(graph.New(engine.Store(), g)))
			}

			server := mcp.New(engine, runner, opts...)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				logger.Info("serving MCP over stdio")
				return server.Run(ctx, &mcpsdk.StdioTransport{})
			}

			return serveHTTP(ctx, addr, server.Handler())
		},
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("serving MCP over HTTP", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "failed to serve", goerr.V("addr", addr))
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down server")
	}
	return nil
}
