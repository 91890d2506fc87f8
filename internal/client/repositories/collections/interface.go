package collections

import (
	"context"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/dbx"
)

// Repository persists the collections half of the local snapshot.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Collection, error)
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	Insert(ctx context.Context, c *models.Collection) error
	Update(ctx context.Context, c *models.Collection) error
	DeleteByID(ctx context.Context, id string) error
	// ReplaceAll swaps the whole set in one statement sequence; callers run
	// it inside a transaction together with the cards replacement.
	ReplaceAll(ctx context.Context, tx dbx.DBTX, items []models.Collection) error
}
