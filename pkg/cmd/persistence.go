package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/persistence/file"
	"github.com/stormlab/diffract/pkg/persistence/postgresql"
	"github.com/stormlab/diffract/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis"}

// NewPersistence selects the persistence backend from the database URL
// scheme. Unknown schemes fall back to file persistence.
func NewPersistence(ctx context.Context, databaseURL string) persistence.Persistence {
	var (
		p   persistence.Persistence
		err error
	)

	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err = postgresql.NewPersistence(ctx, databaseURL)
	case "redis":
		p, err = redis.NewPersistence(ctx, databaseURL)
	default:
		p, err = file.NewPersistence(databaseURL)
	}

	if err != nil {
		panic(fmt.Errorf("failed to create persistence: %w", err))
	}

	return p
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
