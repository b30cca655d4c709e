package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/usecase/chief"
	"github.com/urfave/cli/v3"
)

func insightsCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "insights",
		Usage: "Show totals, date range and top communicators",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}

			return printResult(c.Root().Writer, cfg.format, engine.OrganizationalInsights())
		},
	}
}

func peopleCommand() *cli.Command {
	var (
		cfg config
		top int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top",
			Aliases:     []string{"n"},
			Usage:       "Rank the N most active people instead of listing everyone",
			Sources:     cli.EnvVars("ORGINTEL_PEOPLE_TOP"),
			Destination: &top,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "people",
		Usage: "List every sender and receiver, or rank the most active ones",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}

			if top > 0 {
				return printResult(c.Root().Writer, cfg.format, engine.TopCommunicators(int(top)))
			}

			people, err := engine.Store().People(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list people")
			}
			return printResult(c.Root().Writer, cfg.format, map[string]any{
				"people": people,
				"count":  len(people),
			})
		},
	}
}

func personCommand() *cli.Command {
	var (
		cfg     config
		analyze bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "analyze",
			Aliases:     []string{"a"},
			Usage:       "Add an LLM analysis of the person's role",
			Destination: &analyze,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "person",
		Usage:     "Show the communication patterns of a person",
		ArgsUsage: "<email>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			email := c.Args().First()
			if email == "" {
				return goerr.New("email address is required")
			}

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}

			if !analyze {
				return printResult(c.Root().Writer, cfg.format, engine.CommunicationPatterns(email))
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			uc, err := chief.New(engine, gemini)
			if err != nil {
				return err
			}

			stop := startSpinner(" Analyzing...")
			analysis, err := uc.AnalyzePerson(ctx, email)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to analyze person", goerr.V("email", email))
			}
			return printResult(c.Root().Writer, cfg.format, analysis)
		},
	}
}

type topicSize struct {
	Token string `json:"token"`
	Size  int    `json:"size"`
}

func topicsCommand() *cli.Command {
	var (
		cfg       config
		minEmails int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "min-emails",
			Usage:       "Minimum number of emails per topic",
			Value:       analytics.DefaultMinClusterSize,
			Sources:     cli.EnvVars("ORGINTEL_TOPICS_MIN_EMAILS"),
			Destination: &minEmails,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)

	return &cli.Command{
		Name:  "topics",
		Usage: "Show subject words shared by many emails",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}

			clusters := engine.TopicClusters(int(minEmails))
			sizes := make([]topicSize, 0, len(clusters))
			for _, cluster := range clusters {
				sizes = append(sizes, topicSize{Token: cluster.Token, Size: len(cluster.Records)})
			}
			return printResult(c.Root().Writer, cfg.format, sizes)
		},
	}
}
