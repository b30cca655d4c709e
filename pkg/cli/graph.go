package cli

import (
	"context"

	"github.com/m-mizutani/orgintel/pkg/repository"
	"github.com/m-mizutani/orgintel/pkg/usecase/graph"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Communication graph store",
		Commands: []*cli.Command{
			graphLoadCommand(),
			graphTopCommand(),
		},
	}
}

// closeGraph releases the store connection, logging failures
func closeGraph(ctx context.Context, g repository.Graph) {
	if err := g.Close(ctx); err != nil {
		logging.From(ctx).Warn("failed to close graph store", "error", err)
	}
}

func graphLoadCommand() *cli.Command {
	var (
		cfg         config
		clearFirst  bool
		concurrency int64
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "clear",
			Usage:       "Delete every person and relationship before loading",
			Destination: &clearFirst,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of concurrent writes",
			Value:       graph.DefaultConcurrency,
			Destination: &concurrency,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, graphFlags(&cfg)...)

	return &cli.Command{
		Name:  "load",
		Usage: "Load persons and sender to receiver relationships into the graph store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}

			g, err := cfg.newGraph(ctx)
			if err != nil {
				return err
			}
			defer closeGraph(ctx, g)

			uc := graph.New(engine.Store(), g,
				graph.WithClear(clearFirst),
				graph.WithConcurrency(int(concurrency)),
			)

			stop := startSpinner(" loading graph...")
			result, err := uc.Load(ctx)
			stop()
			if err != nil {
				return err
			}
			return printResult(c.Root().Writer, cfg.format, result)
		},
	}
}

func graphTopCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Number of relationships to show",
			Value:       repository.DefaultTopRelationships,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, graphFlags(&cfg)...)

	return &cli.Command{
		Name:  "top",
		Usage: "Show the strongest relationships in the graph store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			g, err := cfg.newGraph(ctx)
			if err != nil {
				return err
			}
			defer closeGraph(ctx, g)

			edges, err := graph.New(nil, g).TopRelationships(ctx, int(limit))
			if err != nil {
				return err
			}
			return printResult(c.Root().Writer, cfg.format, edges)
		},
	}
}
