package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/lexora-app/lexora-sync/internal/export"
	"github.com/lexora-app/lexora-sync/internal/merge"
)

// Export writes the current snapshot to a JSON file.
func (a *App) Export(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Export file path", os.Stdout)
	if err != nil {
		return err
	}
	snapshot, err := a.store.Snapshot(ctx)
	if err != nil {
		fmt.Println("Failed to read replica:", err)
		return err
	}
	data, err := export.EncodeJSON(snapshot)
	if err != nil {
		fmt.Println("Failed to encode snapshot:", err)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		fmt.Println("Failed to write file:", err)
		return err
	}
	fmt.Printf("Exported %d decks and %d cards to %s\n", len(snapshot.Collections), len(snapshot.Cards), path)
	return nil
}

// Import merges a snapshot file into the replica using the regular conflict
// policy, then flags the result for upload.
func (a *App) Import(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Import file path", os.Stdout)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Failed to read file:", err)
		return err
	}
	incoming, err := export.Decode(data)
	if err != nil {
		fmt.Println("Invalid snapshot file:", err)
		return err
	}
	local, err := a.store.Snapshot(ctx)
	if err != nil {
		fmt.Println("Failed to read replica:", err)
		return err
	}
	merged, err := merge.Merge(local, incoming)
	if err != nil {
		fmt.Println("Merge failed:", err)
		return err
	}
	if err := a.store.Replace(ctx, merged); err != nil {
		fmt.Println("Failed to update replica:", err)
		return err
	}
	a.store.MarkPending(ctx)
	a.scheduler.NotifyMutation()
	fmt.Printf("Imported: replica now has %d decks and %d cards\n", len(merged.Collections), len(merged.Cards))
	return nil
}
