package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"github.com/m-mizutani/orgintel/pkg/tool/org"
	"github.com/m-mizutani/orgintel/pkg/tool/warehouse"
	"github.com/m-mizutani/orgintel/pkg/usecase/chief"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
	"github.com/urfave/cli/v3"
)

// startSpinner shows msg on stderr until the returned function is called
func startSpinner(msg string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = msg
	s.Start()
	return s.Stop
}

func newToolRegistry() *tool.Registry {
	return tool.New(org.New(), warehouse.New())
}

// newChief builds the LLM use case with the organization tools enabled
func (cfg *config) newChief(ctx context.Context, engine *analytics.Engine, registry *tool.Registry) (*chief.UseCase, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	if err := registry.Init(ctx, &tool.Client{
		Engine:      engine,
		Coordinator: coordinator.New(engine),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize tools")
	}

	return chief.New(engine, gemini, chief.WithRegistry(registry))
}

func queryCommand() *cli.Command {
	var (
		cfg      config
		noEmails bool
	)
	registry := newToolRegistry()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "no-emails",
			Usage:       "Do not add matching emails to the prompt",
			Destination: &noEmails,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:      "query",
		Usage:     "Ask a question about the organization",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			uc, err := cfg.newChief(ctx, engine, registry)
			if err != nil {
				return err
			}

			stop := startSpinner(" Thinking...")
			answer, err := uc.Query(ctx, question, !noEmails)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to process query")
			}
			return printResult(c.Root().Writer, cfg.format, answer)
		},
	}
}

func chatCommand() *cli.Command {
	var cfg config
	registry := newToolRegistry()

	flags := globalFlags(&cfg)
	flags = append(flags, sourceFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation about the organization",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)
			w := c.Root().Writer

			engine, _, err := cfg.newEngine(ctx)
			if err != nil {
				return err
			}
			uc, err := cfg.newChief(ctx, engine, registry)
			if err != nil {
				return err
			}
			session := uc.NewSession()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     chatHistoryFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start readline")
			}
			defer rl.Close()

			fmt.Fprintf(w, "Chat session started. Type 'exit' to quit.\n")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "" {
					continue
				}
				if message == "exit" {
					break
				}

				stop := startSpinner(" Thinking...")
				response, err := session.Send(ctx, message)
				stop()
				if err != nil {
					fmt.Fprintf(w, "error: %v\n", err)
					continue
				}
				fmt.Fprintf(w, "%s\n\n", response)
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

func chatHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "orgintel")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}
