// Package client bootstraps the local replica: it opens the sqlite
// database, applies migrations, and hands out the repository bundle.
package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/lexora-app/lexora-sync/internal/client/migrations"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/cards"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/collections"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/syncstate"
)

// Repositories bundles the replica's persistence surfaces: the two snapshot
// halves plus the sync bookkeeping, each independently rehydratable.
type Repositories struct {
	Collections collections.Repository
	Cards       cards.Repository
	SyncState   syncstate.Repository
	DB          *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the replica database, migrates it, and returns the
// repository bundle.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Collections: collections.NewSQLiteRepository(db),
		Cards:       cards.NewSQLiteRepository(db),
		SyncState:   syncstate.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}
