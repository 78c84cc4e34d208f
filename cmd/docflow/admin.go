package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/session"
	"github.com/dukex/docflow/pkg/templates"
	"github.com/urfave/cli/v3"
)

func withStack(ctx context.Context, command *cli.Command, fn func(*cmd.Stack) error) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("cli")

	stack, err := cmd.NewStack(ctx, logger, cmd.StackConfigFrom(command, "docflow"))
	if err != nil {
		return err
	}

	defer func() {
		if err := stack.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down cleanly", "error", err)
		}
	}()

	return fn(stack)
}

func runSessionsList(ctx context.Context, command *cli.Command) error {
	filter := persistence.SessionFilter{
		AgentType: command.String("agent"),
		Status:    models.SessionStatus(command.String("status")),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return fmt.Errorf("invalid session status: %s", filter.Status)
	}

	return withStack(ctx, command, func(stack *cmd.Stack) error {
		return listSessions(ctx, stack.Registry, filter, os.Stdout)
	})
}

func runSessionsCleanup(ctx context.Context, command *cli.Command) error {
	return withStack(ctx, command, func(stack *cmd.Stack) error {
		result, err := stack.Sweeper.Sweep(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("세션 %d개, 스냅샷 %d개를 삭제했습니다.\n", result.Sessions, result.Snapshots)

		return nil
	})
}

func runTemplatesList(ctx context.Context, command *cli.Command) error {
	return withStack(ctx, command, func(stack *cmd.Stack) error {
		listTemplates(stack.Catalog, os.Stdout)

		return nil
	})
}

func listSessions(ctx context.Context, registry *session.Registry, filter persistence.SessionFilter, out io.Writer) error {
	sessions, err := registry.List(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tAGENT\tSTATUS\tNEXT NODE\tLAST UPDATED")

	for _, s := range sessions {
		next := "-"
		if s.InterruptInfo != nil {
			next = s.InterruptInfo.NextNode
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.AgentType, s.Status, next, s.LastUpdated.Format(time.RFC3339))
	}

	return w.Flush()
}

func listTemplates(catalog *templates.Catalog, out io.Writer) {
	for _, docType := range catalog.DocumentTypes() {
		entry, _ := catalog.Get(docType)
		fmt.Fprintf(out, "%s\n  %s\n", docType, strings.Join(entry.Fields, ", "))
	}
}
