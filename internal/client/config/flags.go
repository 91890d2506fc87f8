package config

import (
	"flag"
	"os"
	"time"

	"github.com/lexora-app/lexora-sync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path (DSN) of the local SQLite database
//	-b string   remote backend: drive or s3
//	-f string   name of the snapshot file in remote storage
//	-i int      debounce interval before auto sync (in seconds)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-f", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local database")
	backend := fs.String("b", string(cfg.RemoteBackend), "remote backend (drive or s3)")
	fs.StringVar(&cfg.SyncFileName, "f", cfg.SyncFileName, "snapshot file name in remote storage")
	debounce := fs.Int("i", int(cfg.DebounceInterval.Seconds()), "auto sync debounce interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RemoteBackend = Backend(*backend)
	cfg.DebounceInterval = time.Duration(*debounce) * time.Second
}
