package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/cards"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/collections"
	"github.com/lexora-app/lexora-sync/internal/validation"
)

// TriggerNotifier receives change notifications from the mutation services.
// The scheduler implements it; a nil notifier disables auto sync.
type TriggerNotifier interface {
	NotifyMutation()
	NotifyReview()
}

// CollectionService owns collection mutations. Every write flags the
// replica pending and pokes the notifier so the change eventually uploads.
type CollectionService struct {
	collections collections.Repository
	cards       cards.Repository
	store       *ReplicaStore
	notifier    TriggerNotifier
	now         func() time.Time
}

func NewCollectionService(collectionRepo collections.Repository, cardRepo cards.Repository, store *ReplicaStore, notifier TriggerNotifier) *CollectionService {
	return &CollectionService{
		collections: collectionRepo,
		cards:       cardRepo,
		store:       store,
		notifier:    notifier,
		now:         time.Now,
	}
}

// List returns all collections.
func (s *CollectionService) List(ctx context.Context) ([]models.Collection, error) {
	return s.collections.GetAll(ctx)
}

// Create adds a new named collection and returns it.
func (s *CollectionService) Create(ctx context.Context, name string) (*models.Collection, error) {
	c := &models.Collection{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: models.FormatTime(s.now()),
	}
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	if err := s.collections.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert collection: %w", err)
	}
	s.changed(ctx)
	return c, nil
}

// Rename changes a collection's name and stamps UpdatedAt so the rename
// wins over older names on other replicas.
func (s *CollectionService) Rename(ctx context.Context, id, name string) (*models.Collection, error) {
	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("collection %q does not exist", id)
	}
	c.Name = name
	c.UpdatedAt = models.NextTimestamp(c.UpdatedAt, s.now())
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	s.changed(ctx)
	return c, nil
}

// Delete removes a collection and all of its cards.
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	if err := s.cards.DeleteByCollectionID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete cards of collection: %w", err)
	}
	if err := s.collections.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	s.changed(ctx)
	return nil
}

func (s *CollectionService) changed(ctx context.Context) {
	s.store.MarkPending(ctx)
	if s.notifier != nil {
		s.notifier.NotifyMutation()
	}
}
