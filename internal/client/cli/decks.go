package cli

import (
	"context"
	"fmt"
	"os"
)

// ListDecks prints all collections with their ids.
func (a *App) ListDecks(ctx context.Context) error {
	decks, err := a.collections.List(ctx)
	if err != nil {
		fmt.Println("Failed to list decks:", err)
		return err
	}
	if len(decks) == 0 {
		fmt.Println("No decks yet, use 'adddeck' to create one.")
		return nil
	}
	for _, d := range decks {
		fmt.Printf("%s  %s\n", d.ID, d.Name)
	}
	return nil
}

// AddDeck prompts for a name and creates a collection.
func (a *App) AddDeck(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Deck name", os.Stdout)
	if err != nil {
		return err
	}
	deck, err := a.collections.Create(ctx, name)
	if err != nil {
		fmt.Println("Failed to create deck:", err)
		return err
	}
	fmt.Printf("Created deck %s\n", deck.ID)
	return nil
}

// RenameDeck prompts for an id and a new name.
func (a *App) RenameDeck(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Deck id", os.Stdout)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "New name", os.Stdout)
	if err != nil {
		return err
	}
	if _, err := a.collections.Rename(ctx, id, name); err != nil {
		fmt.Println("Failed to rename deck:", err)
		return err
	}
	fmt.Println("Renamed.")
	return nil
}

// DeleteDeck prompts for an id and removes the deck with its cards.
func (a *App) DeleteDeck(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Deck id", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.collections.Delete(ctx, id); err != nil {
		fmt.Println("Failed to delete deck:", err)
		return err
	}
	fmt.Println("Deleted.")
	return nil
}
