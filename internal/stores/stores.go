// Package stores opens the seller directory and operator repositories on the
// configured backend.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/env"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/operator"
)

const DefaultSQLitePath = "sales-routing.db"

type Options struct {
	// Backend is env.BackendSQLite (default) or env.BackendDynamoDB.
	Backend    string
	SQLitePath string
}

type Stores struct {
	Backend   string
	Sellers   directory.Repository
	Operators operator.Repository

	sqlite *sql.DB
}

func Open(ctx context.Context, opts Options) (*Stores, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = env.BackendSQLite
	}

	switch backend {
	case env.BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		db, err := database.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Backend:   backend,
			Sellers:   directory.NewSQLiteRepository(db),
			Operators: operator.NewSQLiteRepository(db),
			sqlite:    db,
		}, nil

	case env.BackendDynamoDB:
		db, err := database.NewDatabase()
		if err != nil {
			return nil, fmt.Errorf("dynamodb init: %w", err)
		}
		return &Stores{
			Backend:   backend,
			Sellers:   directory.NewDynamoRepository(db),
			Operators: operator.NewDynamoRepository(db),
		}, nil
	}

	return nil, fmt.Errorf("unknown directory backend %q", opts.Backend)
}

// FromEnv opens the backend named by DIRECTORY_BACKEND and SQLITE_PATH.
func FromEnv(ctx context.Context) (*Stores, error) {
	return Open(ctx, Options{
		Backend:    env.Get(env.DirectoryBackend),
		SQLitePath: env.Get(env.SQLitePath),
	})
}

func (s *Stores) Close() error {
	if s.sqlite != nil {
		return s.sqlite.Close()
	}
	return nil
}
