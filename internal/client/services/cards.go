package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/client/repositories/cards"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
	"github.com/lexora-app/lexora-sync/internal/validation"
)

const (
	defaultEaseFactor = 2.5
	minEaseFactor     = 1.3
)

// CardService owns card mutations and review grading. Reviews notify the
// scheduler separately from content edits.
type CardService struct {
	cards    cards.Repository
	store    *ReplicaStore
	notifier TriggerNotifier
	now      func() time.Time
}

func NewCardService(cardRepo cards.Repository, store *ReplicaStore, notifier TriggerNotifier) *CardService {
	return &CardService{
		cards:    cardRepo,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// ListByCollection returns the cards of one collection.
func (s *CardService) ListByCollection(ctx context.Context, collectionID string) ([]models.Card, error) {
	all, err := s.cards.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Card, 0, len(all))
	for _, c := range all {
		if c.CollectionID == collectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create adds a new card due immediately, with fresh scheduling state.
func (s *CardService) Create(ctx context.Context, collectionID, front, back string) (*models.Card, error) {
	now := s.now()
	stamp := models.FormatTime(now)
	card := &models.Card{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		Front:        front,
		Back:         back,
		EaseFactor:   defaultEaseFactor,
		DueDate:      stamp,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err := validation.Struct(card); err != nil {
		return nil, err
	}
	if err := s.cards.Insert(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}
	s.changed(ctx, false)
	return card, nil
}

// UpdateContent rewrites the card's faces without touching its schedule.
func (s *CardService) UpdateContent(ctx context.Context, id, front, back string) (*models.Card, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("card %q does not exist", id)
	}
	card.Front = front
	card.Back = back
	card.UpdatedAt = models.NextTimestamp(card.UpdatedAt, s.now())
	if err := validation.Struct(card); err != nil {
		return nil, err
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}
	s.changed(ctx, false)
	return card, nil
}

// Delete removes a card.
func (s *CardService) Delete(ctx context.Context, id string) error {
	if err := s.cards.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	s.changed(ctx, false)
	return nil
}

// RecordReview applies an SM-2 style grade (0..5) to the card's schedule.
// Grades below 3 reset the repetition streak; the ease factor never drops
// below 1.3.
func (s *CardService) RecordReview(ctx context.Context, id string, grade int) (*models.Card, error) {
	if grade < 0 || grade > 5 {
		return nil, syncerr.New(syncerr.CodeValidationFailed, "review grade must be between 0 and 5")
	}

	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("card %q does not exist", id)
	}

	now := s.now()
	if grade >= 3 {
		switch card.Repetitions {
		case 0:
			card.IntervalDays = 1
		case 1:
			card.IntervalDays = 6
		default:
			card.IntervalDays = int(math.Round(float64(card.IntervalDays) * card.EaseFactor))
		}
		card.Repetitions++
	} else {
		card.Repetitions = 0
		card.IntervalDays = 1
	}

	g := float64(grade)
	card.EaseFactor += 0.1 - (5-g)*(0.08+(5-g)*0.02)
	if card.EaseFactor < minEaseFactor {
		card.EaseFactor = minEaseFactor
	}

	card.DueDate = models.FormatTime(now.AddDate(0, 0, card.IntervalDays))
	card.LastReviewedAt = models.FormatTime(now)
	card.UpdatedAt = models.NextTimestamp(card.UpdatedAt, now)

	if err := s.cards.Update(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to update card after review: %w", err)
	}
	s.changed(ctx, true)
	return card, nil
}

func (s *CardService) changed(ctx context.Context, review bool) {
	s.store.MarkPending(ctx)
	if s.notifier == nil {
		return
	}
	if review {
		s.notifier.NotifyReview()
	} else {
		s.notifier.NotifyMutation()
	}
}
