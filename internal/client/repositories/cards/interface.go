package cards

import (
	"context"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/dbx"
)

// Repository persists the cards half of the local snapshot.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Card, error)
	GetByID(ctx context.Context, id string) (*models.Card, error)
	Insert(ctx context.Context, card *models.Card) error
	Update(ctx context.Context, card *models.Card) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByCollectionID(ctx context.Context, collectionID string) error
	ReplaceAll(ctx context.Context, tx dbx.DBTX, items []models.Card) error
}
