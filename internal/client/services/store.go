package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lexora-app/lexora-sync/internal/client/client"
	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/dbx"
	"github.com/lexora-app/lexora-sync/internal/logging"
)

// ReplicaStore is the facade over the local replica the orchestrator works
// with: the snapshot halves, the persisted sync state, and the hydration
// signal. Sync state mutations are serialized and written through to the
// metadata table immediately.
type ReplicaStore struct {
	repos *client.Repositories
	log   logging.Logger

	hydrated atomic.Bool

	mu    sync.Mutex
	state models.SyncState
}

func NewReplicaStore(repos *client.Repositories, log logging.Logger) *ReplicaStore {
	if log == nil {
		log = logging.Discard()
	}
	return &ReplicaStore{repos: repos, log: log, state: models.DefaultSyncState()}
}

// Hydrate loads the persisted sync state. A sync attempt before Hydrate
// completes fails fast with STORE_NOT_READY.
func (s *ReplicaStore) Hydrate(ctx context.Context) error {
	state, err := s.repos.SyncState.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to rehydrate sync state: %w", err)
	}
	// A crash mid-sync must not leave the replica stuck in "syncing".
	if state.LastSyncStatus == models.SyncStatusSyncing {
		state.LastSyncStatus = models.SyncStatusIdle
	}
	state.HasHydrated = true

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.hydrated.Store(true)
	return nil
}

func (s *ReplicaStore) Hydrated() bool {
	return s.hydrated.Load()
}

// Snapshot reads the full local snapshot.
func (s *ReplicaStore) Snapshot(ctx context.Context) (models.Snapshot, error) {
	cols, err := s.repos.Collections.GetAll(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	cards, err := s.repos.Cards.GetAll(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{Collections: cols, Cards: cards}, nil
}

// Replace swaps the whole local snapshot in one transaction.
func (s *ReplicaStore) Replace(ctx context.Context, snapshot models.Snapshot) error {
	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Collections.ReplaceAll(ctx, tx, snapshot.Collections); err != nil {
			return err
		}
		return s.repos.Cards.ReplaceAll(ctx, tx, snapshot.Cards)
	})
}

// State returns a copy of the current sync state.
func (s *ReplicaStore) State() models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateState applies fn to the sync state and persists the result.
func (s *ReplicaStore) UpdateState(ctx context.Context, fn func(*models.SyncState)) (models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	if err := s.repos.SyncState.Save(ctx, next); err != nil {
		return s.state, fmt.Errorf("failed to persist sync state: %w", err)
	}
	s.state = next
	return next, nil
}

// MarkPending flags unsynchronized local changes. Best effort: a failed
// persist is logged, the in-memory flag still guards the next trigger.
func (s *ReplicaStore) MarkPending(ctx context.Context) {
	if _, err := s.UpdateState(ctx, func(st *models.SyncState) {
		st.PendingChanges = true
	}); err != nil {
		s.log.Warn(ctx, "failed to persist pending-changes flag", "error", err)
	}
}
