package cli

import (
	"context"
	"fmt"
)

// getSimpleText and getInt are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getInt = GetInt

// SignIn runs the interactive consent flow and records the session.
func (a *App) SignIn(ctx context.Context) error {
	if err := a.syncService.SignIn(ctx); err != nil {
		fmt.Println("Sign-in failed:", err)
		return err
	}
	fmt.Println("Signed in.")
	return nil
}

// SignOut revokes the session and clears local authentication state.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.syncService.SignOut(ctx); err != nil {
		fmt.Println("Sign-out failed:", err)
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

// Sync runs a full bidirectional sync right now.
func (a *App) Sync(ctx context.Context) error {
	outcome, err := a.syncService.SyncNow(ctx)
	if err != nil {
		fmt.Println("Sync failed:", err)
		return err
	}
	if outcome.Created {
		fmt.Printf("Created remote snapshot %s\n", outcome.UploadedFileID)
	} else {
		fmt.Printf("Synced: %d decks, %d cards\n", len(outcome.Merged.Collections), len(outcome.Merged.Cards))
	}
	return nil
}

// Pull merges the remote snapshot into the replica without uploading.
func (a *App) Pull(ctx context.Context) error {
	merged, err := a.syncService.ForceDownload(ctx)
	if err != nil {
		fmt.Println("Pull failed:", err)
		return err
	}
	fmt.Printf("Pulled: %d decks, %d cards\n", len(merged.Collections), len(merged.Cards))
	return nil
}

// Push uploads the local snapshot as-is.
func (a *App) Push(ctx context.Context) error {
	result, err := a.syncService.ForceUpload(ctx)
	if err != nil {
		fmt.Println("Push failed:", err)
		return err
	}
	verb := "Updated"
	if result.Created {
		verb = "Created"
	}
	fmt.Printf("%s remote snapshot %s\n", verb, result.File.ID)
	return nil
}

// ShowStatus prints the sync read model.
func (a *App) ShowStatus(ctx context.Context) error {
	st := a.syncService.Status()
	fmt.Println("Ready:        ", st.IsReady)
	fmt.Println("Authenticated:", st.IsAuthenticated)
	fmt.Println("Status:       ", st.Status)
	fmt.Println("Pending:      ", st.PendingChanges)
	fmt.Println("Busy:         ", st.IsBusy)
	if st.LastSyncAt != "" {
		fmt.Println("Last sync:    ", st.LastSyncAt)
	}
	if st.LastError != "" {
		fmt.Println("Last error:   ", st.LastError)
	}
	return nil
}
