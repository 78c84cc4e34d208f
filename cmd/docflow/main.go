// Package main provides the interactive docflow command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "docflow",
		Usage:                 "Draft compliance documents from the terminal",
		EnableShellCompletion: true,
		Flags:                 cmd.StackFlags(),
		Commands: []*cli.Command{
			{
				Name:      "chat",
				Aliases:   []string{"c"},
				Usage:     "Start a document conversation",
				ArgsUsage: "[request]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Session ID to start or continue (generated when empty)",
					},
				},
				Action: runChat,
			},
			{
				Name:  "sessions",
				Usage: "Inspect and clean up sessions",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List sessions, most recent first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "agent", Usage: "Only sessions served by this agent"},
							&cli.StringFlag{Name: "status", Usage: "Only sessions in this status"},
						},
						Action: runSessionsList,
					},
					{
						Name:   "cleanup",
						Usage:  "Remove sessions and snapshots past the retention period",
						Action: runSessionsCleanup,
					},
				},
			},
			{
				Name:  "templates",
				Usage: "Inspect the template catalog",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List the configured document types and their fields",
						Action: runTemplatesList,
					},
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
