package cli

import (
	"context"
	"fmt"
	"os"
)

// ListCards prompts for a deck id and prints its cards.
func (a *App) ListCards(ctx context.Context) error {
	deckID, err := getSimpleText(a.reader, "Deck id", os.Stdout)
	if err != nil {
		return err
	}
	items, err := a.cards.ListByCollection(ctx, deckID)
	if err != nil {
		fmt.Println("Failed to list cards:", err)
		return err
	}
	if len(items) == 0 {
		fmt.Println("No cards in this deck.")
		return nil
	}
	for _, c := range items {
		fmt.Printf("%s  %q -> %q  due %s\n", c.ID, c.Front, c.Back, c.DueDate)
	}
	return nil
}

// AddCard prompts for deck id, front, and back, and creates a card.
func (a *App) AddCard(ctx context.Context) error {
	deckID, err := getSimpleText(a.reader, "Deck id", os.Stdout)
	if err != nil {
		return err
	}
	front, err := getSimpleText(a.reader, "Front", os.Stdout)
	if err != nil {
		return err
	}
	back, err := getSimpleText(a.reader, "Back", os.Stdout)
	if err != nil {
		return err
	}
	card, err := a.cards.Create(ctx, deckID, front, back)
	if err != nil {
		fmt.Println("Failed to create card:", err)
		return err
	}
	fmt.Printf("Created card %s\n", card.ID)
	return nil
}

// DeleteCard prompts for a card id and removes it.
func (a *App) DeleteCard(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Card id", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.cards.Delete(ctx, id); err != nil {
		fmt.Println("Failed to delete card:", err)
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

// Review prompts for a card id and a grade and records the review.
func (a *App) Review(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Card id", os.Stdout)
	if err != nil {
		return err
	}
	grade, err := getInt(a.reader, "Grade (0=blackout .. 5=perfect)", 0, 5, os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}
	card, err := a.cards.RecordReview(ctx, id, grade)
	if err != nil {
		fmt.Println("Failed to record review:", err)
		return err
	}
	fmt.Printf("Next review on %s (interval %d days)\n", card.DueDate, card.IntervalDays)
	return nil
}
