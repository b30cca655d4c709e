package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/usecase/watch"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func watchCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "watch",
		Usage: "Reload the record file on change and take a knowledge snapshot each time",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			if cfg.bucket != "" || cfg.bigqueryQuery != "" {
				return goerr.New("watch requires a local record file",
					goerr.V("bucket", cfg.bucket), goerr.V("query", cfg.bigqueryQuery))
			}

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			out := c.Root().Writer
			onReload := func(ctx context.Context, count int) error {
				update, err := runner.Memory(ctx)
				if err != nil {
					return err
				}
				logging.From(ctx).Info("records reloaded", "records", count, "version", update.Version)
				return printResult(out, cfg.format, update)
			}

			uc, err := watch.New(cfg.source, engine.Store(), watch.WithOnReload(onReload))
			if err != nil {
				return err
			}
			defer func() {
				if err := uc.Close(); err != nil {
					logging.From(ctx).Warn("failed to close watcher", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.From(ctx).Info("watching records", "path", cfg.source)
			return uc.Run(ctx)
		},
	}
}
