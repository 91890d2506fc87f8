package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

type recordingNotifier struct {
	mutations int
	reviews   int
}

func (n *recordingNotifier) NotifyMutation() { n.mutations++ }
func (n *recordingNotifier) NotifyReview()   { n.reviews++ }

func TestCollectionService_CreateRenameDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	collections := NewCollectionService(store.repos.Collections, store.repos.Cards, store, notifier)
	cards := NewCardService(store.repos.Cards, store, notifier)

	deck, err := collections.Create(ctx, "Spanish")
	require.NoError(t, err)
	assert.NotEmpty(t, deck.ID)
	assert.NotEmpty(t, deck.CreatedAt)
	assert.Empty(t, deck.UpdatedAt)
	assert.True(t, store.State().PendingChanges)
	assert.Equal(t, 1, notifier.mutations)

	renamed, err := collections.Rename(ctx, deck.ID, "Spanish B1")
	require.NoError(t, err)
	assert.Equal(t, "Spanish B1", renamed.Name)
	// Rename stamps the conflict-resolution timestamp.
	_, ok := models.ParseTime(renamed.UpdatedAt)
	assert.True(t, ok)
	assert.Equal(t, 2, notifier.mutations)

	card, err := cards.Create(ctx, deck.ID, "hola", "hello")
	require.NoError(t, err)

	require.NoError(t, collections.Delete(ctx, deck.ID))

	// The deck's cards go with it.
	gone, err := store.repos.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCollectionService_CreateRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	collections := NewCollectionService(store.repos.Collections, store.repos.Cards, store, nil)

	_, err := collections.Create(ctx, "")
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidationFailed, syncerr.CodeOf(err))
}

func TestCardService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cards := NewCardService(store.repos.Cards, store, nil)

	card, err := cards.Create(ctx, "col-a", "hola", "hello")
	require.NoError(t, err)

	assert.Equal(t, 2.5, card.EaseFactor)
	assert.Zero(t, card.IntervalDays)
	assert.Zero(t, card.Repetitions)
	assert.Equal(t, card.CreatedAt, card.UpdatedAt)
	// New cards are due immediately.
	assert.Equal(t, card.CreatedAt, card.DueDate)
}

func TestCardService_UpdateContentAdvancesStamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cards := NewCardService(store.repos.Cards, store, nil)

	card, err := cards.Create(ctx, "col-a", "hola", "hello")
	require.NoError(t, err)

	updated, err := cards.UpdateContent(ctx, card.ID, "adiós", "goodbye")
	require.NoError(t, err)

	assert.Equal(t, "adiós", updated.Front)
	before, _ := models.ParseTime(card.UpdatedAt)
	after, ok := models.ParseTime(updated.UpdatedAt)
	require.True(t, ok)
	assert.True(t, after.After(before))
	// The schedule is untouched by a content edit.
	assert.Equal(t, card.DueDate, updated.DueDate)
}

func TestCardService_RecordReview(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	cards := NewCardService(store.repos.Cards, store, notifier)
	cards.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }

	card, err := cards.Create(ctx, "col-a", "hola", "hello")
	require.NoError(t, err)

	reviewed, err := cards.RecordReview(ctx, card.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, reviewed.Repetitions)
	assert.Equal(t, 1, reviewed.IntervalDays)
	assert.Equal(t, "2026-02-02T12:00:00Z", reviewed.DueDate)
	assert.Equal(t, "2026-02-01T12:00:00Z", reviewed.LastReviewedAt)
	assert.InDelta(t, 2.6, reviewed.EaseFactor, 0.001)
	assert.Equal(t, 1, notifier.reviews)

	// Second success jumps to the six-day interval.
	reviewed, err = cards.RecordReview(ctx, card.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, reviewed.Repetitions)
	assert.Equal(t, 6, reviewed.IntervalDays)
}

func TestCardService_FailedReviewResetsStreak(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cards := NewCardService(store.repos.Cards, store, nil)

	card, err := cards.Create(ctx, "col-a", "hola", "hello")
	require.NoError(t, err)

	_, err = cards.RecordReview(ctx, card.ID, 5)
	require.NoError(t, err)
	_, err = cards.RecordReview(ctx, card.ID, 5)
	require.NoError(t, err)

	reviewed, err := cards.RecordReview(ctx, card.ID, 1)
	require.NoError(t, err)

	assert.Zero(t, reviewed.Repetitions)
	assert.Equal(t, 1, reviewed.IntervalDays)
}

func TestCardService_EaseFactorNeverDropsBelowFloor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cards := NewCardService(store.repos.Cards, store, nil)

	card, err := cards.Create(ctx, "col-a", "hola", "hello")
	require.NoError(t, err)

	for range 10 {
		reviewed, err := cards.RecordReview(ctx, card.ID, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reviewed.EaseFactor, 1.3)
	}
}

func TestCardService_ReviewGradeOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cards := NewCardService(store.repos.Cards, store, nil)

	_, err := cards.RecordReview(ctx, "whatever", 6)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidationFailed, syncerr.CodeOf(err))
}
