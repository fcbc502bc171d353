package graph

import (
	"context"
	"fmt"
)

// Config selects and configures a backend
type Config struct {
	// Backend is BackendSQLite or BackendNeo4j
	Backend    string
	SQLitePath string
	Neo4j      Neo4jConfig
}

// Open constructs the configured backend and ensures its schema
func Open(ctx context.Context, cfg Config, opts Options) (Repository, error) {
	var repo Repository
	switch cfg.Backend {
	case BackendSQLite, "":
		r, err := NewSQLite(ctx, cfg.SQLitePath, opts)
		if err != nil {
			return nil, err
		}
		repo = r
	case BackendNeo4j:
		r, err := NewNeo4j(ctx, cfg.Neo4j, opts)
		if err != nil {
			return nil, err
		}
		repo = r
	default:
		return nil, validationError("open", "unknown graph backend %q", cfg.Backend)
	}

	if err := repo.EnsureIndexes(ctx); err != nil {
		repo.Close(ctx)
		return nil, fmt.Errorf("ensuring indexes: %w", err)
	}
	return repo, nil
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ Repository = (*Neo4jRepository)(nil)
)
