package cli

import (
	"context"

	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "orgintel",
		Usage: "Organizational intelligence over email communications",
		Commands: []*cli.Command{
			insightsCommand(),
			peopleCommand(),
			personCommand(),
			topicsCommand(),
			queryCommand(),
			chatCommand(),
			memoryCommand(),
			criticCommand(),
			stakeholdersCommand(),
			graphCommand(),
			watchCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
