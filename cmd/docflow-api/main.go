package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/session"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "cleanup-schedule",
			Usage:   "Cron schedule of the expired session sweep",
			Value:   session.DefaultSchedule,
			Sources: cli.EnvVars("CLEANUP_SCHEDULE"),
		},
	}, cmd.StackFlags()...)

	return &cli.Command{
		Name:                  "docflow-api",
		Usage:                 "Serve the document drafting chat API",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action:                runAPI,
	}
}
