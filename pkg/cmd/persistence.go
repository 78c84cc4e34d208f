// Package cmd holds the wiring shared by the docflow binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/dukex/docflow/pkg/persistence/memory"
	"github.com/dukex/docflow/pkg/persistence/postgresql"
	"github.com/dukex/docflow/pkg/persistence/redisstore"
)

var supportedPersistenceProviders = []string{"memory", "file", "postgres", "postgresql", "redis", "rediss"}

// NewPersistence picks the session store from the database URL scheme. A bare path is a file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)
	logger.InfoContext(ctx, "Initializing persistence", "provider", provider)

	switch provider {
	case "memory":
		return memory.NewPersistence(), nil
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres persistence: %w", err)
		}

		return p, nil
	case "redis", "rediss":
		p, err := redisstore.NewPersistenceFromURL(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	if databaseURL == "" {
		return "memory"
	}

	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if scheme == supported {
			return scheme
		}
	}

	return "file"
}
