package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Knowledge memory snapshots",
		Commands: []*cli.Command{
			memoryUpdateCommand(),
			memoryVersionCommand(),
			memoryChangesCommand(),
		},
	}
}

func memoryUpdateCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "update",
		Usage: "Take a knowledge snapshot of the current records and persist it",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			result, err := runner.Memory(ctx)
			if err != nil {
				return err
			}
			return printResult(c.Root().Writer, cfg.format, result)
		},
	}
}

func memoryVersionCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "version",
		Usage: "Show the current knowledge version",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			_, mem, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			return printResult(c.Root().Writer, cfg.format, map[string]int{
				"version": mem.KnowledgeVersion(),
			})
		},
	}
}

func memoryChangesCommand() *cli.Command {
	var (
		cfg  config
		days int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Look back period in days",
			Value:       1,
			Destination: &days,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "changes",
		Usage: "Show what changed between the two latest snapshots",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			return printResult(c.Root().Writer, cfg.format, runner.WhatChanged(ctx, int(days)))
		},
	}
}

func criticCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, policyFlags(&cfg)...)

	return &cli.Command{
		Name:  "critic",
		Usage: "Detect duplicated topics and topic concentration",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			report, err := runner.Critic(ctx)
			if err != nil {
				return err
			}
			return printResult(c.Root().Writer, cfg.format, report)
		},
	}
}

func stakeholdersCommand() *cli.Command {
	var (
		cfg    config
		topic  string
		person string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "topic",
			Aliases:     []string{"t"},
			Usage:       "Topic keyword; shows stakeholders bucketed by relevance",
			Destination: &topic,
		},
		&cli.StringFlag{
			Name:        "person",
			Aliases:     []string{"p"},
			Usage:       "Email address; shows the person's correspondents",
			Destination: &person,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "stakeholders",
		Usage: "Identify stakeholders of a topic, of a person, or of the organization",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, storage, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			runner, _, err := cfg.newRunner(ctx, engine, storage)
			if err != nil {
				return err
			}

			return printResult(c.Root().Writer, cfg.format, runner.Coordinator(ctx, topic, person))
		},
	}
}
