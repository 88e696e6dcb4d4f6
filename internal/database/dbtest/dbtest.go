// Package dbtest starts a throwaway PostgreSQL container for integration
// tests.
package dbtest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Tomlord1122/task-manager/internal/config"
)

const (
	dbName = "tasks"
	dbUser = "user"
	dbPwd  = "password"
)

// StartPostgres runs postgres:16-alpine and returns a config pointing at it
// together with a function that terminates the container.
func StartPostgres(ctx context.Context) (config.DatabaseConfig, func(context.Context) error, error) {
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return config.DatabaseConfig{}, nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return config.DatabaseConfig{}, nil, fmt.Errorf("postgres connection string: %w", err)
	}

	teardown := func(ctx context.Context) error {
		return container.Terminate(ctx)
	}
	return config.DatabaseConfig{URL: dsn}, teardown, nil
}
