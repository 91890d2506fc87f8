package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	Sync(ctx context.Context) error
	Pull(ctx context.Context) error
	Push(ctx context.Context) error
	ShowStatus(ctx context.Context) error
	ListDecks(ctx context.Context) error
	AddDeck(ctx context.Context) error
	RenameDeck(ctx context.Context) error
	DeleteDeck(ctx context.Context) error
	ListCards(ctx context.Context) error
	AddCard(ctx context.Context) error
	DeleteCard(ctx context.Context) error
	Review(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the sync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		fmt.Printf("lexora (%s) > ", statusFn())
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn("Available commands: signin, signout, sync, pull, push, status,")
			printlnFn("  decks, adddeck, renamedeck, deldeck, cards, addcard, delcard,")
			printlnFn("  review, export, import, exit")

		case "signin":
			_ = a.SignIn(ctx)

		case "signout":
			_ = a.SignOut(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "pull":
			_ = a.Pull(ctx)

		case "push":
			_ = a.Push(ctx)

		case "status":
			_ = a.ShowStatus(ctx)

		case "d", "decks":
			_ = a.ListDecks(ctx)

		case "adddeck":
			_ = a.AddDeck(ctx)

		case "renamedeck":
			_ = a.RenameDeck(ctx)

		case "deldeck":
			_ = a.DeleteDeck(ctx)

		case "c", "cards":
			_ = a.ListCards(ctx)

		case "addcard":
			_ = a.AddCard(ctx)

		case "delcard":
			_ = a.DeleteCard(ctx)

		case "review":
			_ = a.Review(ctx)

		case "export":
			_ = a.Export(ctx)

		case "import":
			_ = a.Import(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
