package syncstate

import (
	"context"

	"github.com/lexora-app/lexora-sync/internal/client/models"
)

// Repository persists sync bookkeeping in the replica's metadata table:
// generic keyed records plus the typed SyncState snapshot under one key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// Load returns the persisted SyncState, or defaults when none was
	// saved yet.
	Load(ctx context.Context) (models.SyncState, error)
	Save(ctx context.Context, state models.SyncState) error
}
