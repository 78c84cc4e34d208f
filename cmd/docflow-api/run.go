package main

import (
	"context"
	"fmt"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/log"
	"github.com/urfave/cli/v3"
)

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing docflow API")

	stack, err := cmd.NewStack(ctx, logger, cmd.StackConfigFrom(command, "docflow-api"))
	if err != nil {
		return fmt.Errorf("failed to build service stack: %w", err)
	}

	defer func() {
		if err := stack.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down cleanly", "error", err)
		}
	}()

	if err := stack.Consume(ctx); err != nil {
		return err
	}

	if err := stack.Sweeper.Start(command.String("cleanup-schedule")); err != nil {
		return err
	}

	api := NewAPI(logger, stack)

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)

		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}
