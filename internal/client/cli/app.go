package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lexora-app/lexora-sync/internal/client/client"
	"github.com/lexora-app/lexora-sync/internal/client/config"
	"github.com/lexora-app/lexora-sync/internal/client/services"
	"github.com/lexora-app/lexora-sync/internal/identity"
	"github.com/lexora-app/lexora-sync/internal/logging"
	"github.com/lexora-app/lexora-sync/internal/netx"
	"github.com/lexora-app/lexora-sync/internal/remote"
	"github.com/lexora-app/lexora-sync/internal/remote/drive"
	"github.com/lexora-app/lexora-sync/internal/remote/s3"
	"github.com/lexora-app/lexora-sync/internal/syncerr"

	_ "modernc.org/sqlite"
)

// refreshTokenKey is the metadata record holding the rotated refresh token.
const refreshTokenKey = "refresh_token"

// App owns the wired-up client: replica, services, scheduler, and the REPL
// input reader.
type App struct {
	config      *config.Config
	repos       *client.Repositories
	store       *services.ReplicaStore
	syncService *services.SyncService
	scheduler   *services.Scheduler
	collections *services.CollectionService
	cards       *services.CardService
	checker     *netx.Checker
	watcher     *netx.Watcher
	log         logging.Logger
	reader      *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	repos, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := services.NewReplicaStore(repos, logger)

	checker := netx.NewChecker(c.ProbeURL, nil)
	online := func() bool { return checker.Online(context.Background()) }

	creds, err := buildCredentials(ctx, c, repos, logger)
	if err != nil {
		return nil, err
	}

	storage, err := buildStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	syncService := services.NewSyncService(store, storage, creds, online, logger)
	scheduler := services.NewScheduler(syncService, c.DebounceInterval, logger)

	app := &App{
		config:      c,
		repos:       repos,
		store:       store,
		syncService: syncService,
		scheduler:   scheduler,
		collections: services.NewCollectionService(repos.Collections, repos.Cards, store, scheduler),
		cards:       services.NewCardService(repos.Cards, store, scheduler),
		checker:     checker,
		watcher:     netx.NewWatcher(checker, c.OnlineCheckInterval, logger),
		log:         logger,
		reader:      bufio.NewReader(os.Stdin),
	}
	return app, nil
}

// buildCredentials assembles the credential manager for the configured
// backend. The s3 backend authenticates with static keys, so its manager
// runs on a provider that only reports whether the keys are present.
func buildCredentials(ctx context.Context, c *config.Config, repos *client.Repositories, logger logging.Logger) (services.Credentials, error) {
	if c.RemoteBackend == config.BackendS3 {
		return staticCredentials{configured: c.S3AccessKey != "" && c.S3SecretKey != ""}, nil
	}

	var refreshToken string
	if v, err := repos.SyncState.Get(ctx, refreshTokenKey); err == nil && v != nil {
		refreshToken = string(v)
	}

	provider := identity.NewOAuthProvider(identity.OAuthConfig{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		Scope:        c.OAuthScope,
		MetadataURL:  c.OAuthMetadataURL,
		RefreshToken: refreshToken,
		Announce: func(verificationURI, userCode string) {
			fmt.Printf("Open %s and enter code %s to approve access\n", verificationURI, userCode)
		},
		PersistRefreshToken: func(token string) {
			if err := repos.SyncState.Set(context.Background(), refreshTokenKey, []byte(token)); err != nil {
				logger.Warn(context.Background(), "failed to persist refresh token", "error", err)
			}
		},
		Logger: logger,
	})
	return identity.NewManager(provider, logger), nil
}

func buildStorage(ctx context.Context, c *config.Config) (remote.Storage, error) {
	switch c.RemoteBackend {
	case config.BackendS3:
		return s3.New(ctx, s3.Config{
			Bucket:    c.S3Bucket,
			Key:       c.SyncFileName,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	case config.BackendDrive, "":
		return drive.New(drive.Config{FileName: c.SyncFileName}), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", c.RemoteBackend)
	}
}

// staticCredentials satisfies services.Credentials for backends whose
// authentication travels with every request instead of a bearer token.
type staticCredentials struct {
	configured bool
}

func (s staticCredentials) GetToken(ctx context.Context, forceRefresh, interactive bool) (string, error) {
	if !s.configured {
		return "", syncerr.New(syncerr.CodeAuthConfigMissing, "s3 credentials are not configured")
	}
	return "", nil
}

func (s staticCredentials) SignOut(ctx context.Context) error {
	return nil
}

// Run hydrates the replica, kicks off the startup sync and the connectivity
// watcher, and enters the REPL. It blocks until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.store.Hydrate(ctx); err != nil {
		return err
	}

	a.scheduler.NotifyStartup()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watcher.Run(watchCtx, a.scheduler.NotifyReconnect)

	fmt.Println("Lexora sync CLI (type 'help' for commands)")
	runREPL(ctx, a, a.statusLine, bufio.NewScanner(os.Stdin))
	return nil
}

// Close stops the scheduler and releases the database.
func (a *App) Close() {
	a.scheduler.Stop()
	if a.repos != nil && a.repos.DB != nil {
		_ = a.repos.DB.Close()
	}
}

func (a *App) statusLine() string {
	st := a.syncService.Status()
	s := string(st.Status)
	if st.IsAuthenticated {
		s = "signed-in " + s
	}
	if st.PendingChanges {
		s += " *"
	}
	return s
}
