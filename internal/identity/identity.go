// Package identity obtains and caches bearer tokens for the remote storage
// API. The Manager owns the cache and the silent-then-interactive policy;
// a TokenProvider does the actual round trips to the identity provider.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/lexora-app/lexora-sync/internal/logging"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

// refreshGrace is subtracted from the expiry when deciding whether a cached
// token is still usable, so a token is never handed out seconds before it
// dies mid-request.
const refreshGrace = 30 * time.Second

// revokeWait caps how long sign-out blocks on the provider's revoke call.
// Sign-out proceeds regardless of the revoke outcome.
const revokeWait = 2 * time.Second

// Token is an access token with its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenProvider performs identity-provider round trips.
//
// Request with interactive=false must never prompt the user: it either
// produces a token silently or fails with AUTH_FAILED / GIS_LOAD_FAILED.
// With interactive=true the provider may run its consent flow.
type TokenProvider interface {
	Request(ctx context.Context, interactive bool) (*Token, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Manager caches one token and serializes acquisition. It is an explicit
// object owned by the composition root, not process-global state.
type Manager struct {
	provider   TokenProvider
	log        logging.Logger
	now        func() time.Time
	revokeWait time.Duration

	mu     sync.Mutex
	cached *Token
}

func NewManager(provider TokenProvider, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{provider: provider, log: log, now: time.Now, revokeWait: revokeWait}
}

func (m *Manager) valid(t *Token) bool {
	return t != nil && m.now().Before(t.ExpiresAt.Add(-refreshGrace))
}

// GetToken returns a usable access token.
//
//  1. Unless forceRefresh, a cached token inside its grace window is
//     returned as is.
//  2. A silent acquisition is attempted.
//  3. On silent failure: non-interactive callers get the failure verbatim;
//     interactive callers fall through to the consent flow, but only for
//     plain auth failures; a provider that could not even load propagates
//     GIS_LOAD_FAILED without prompting.
func (m *Manager) GetToken(ctx context.Context, forceRefresh, interactive bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if forceRefresh {
		m.cached = nil
	}
	if m.valid(m.cached) {
		return m.cached.AccessToken, nil
	}

	token, err := m.provider.Request(ctx, false)
	if err == nil {
		m.cached = token
		return token.AccessToken, nil
	}

	if !interactive {
		return "", syncerr.From(err, "unable to obtain access token")
	}
	if !syncerr.HasCode(err, syncerr.CodeAuthFailed) {
		return "", syncerr.From(err, "unable to obtain access token")
	}

	m.log.Debug(ctx, "silent token acquisition failed, prompting for consent", "cause", err)
	token, err = m.provider.Request(ctx, true)
	if err != nil {
		return "", syncerr.From(err, "sign-in failed")
	}
	m.cached = token
	return token.AccessToken, nil
}

// HasValidToken reports whether a usable token is cached, without touching
// the provider.
func (m *Manager) HasValidToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid(m.cached)
}

// SignOut revokes the cached token with the identity provider and clears
// the cache. The revoke round trip is bounded: after revokeWait the method
// returns anyway, because a hung revoke must not block local sign-out.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	token := ""
	if m.cached != nil {
		token = m.cached.AccessToken
	}
	m.cached = nil
	m.mu.Unlock()

	if token == "" {
		return nil
	}

	done := make(chan error, 1)
	revokeCtx, cancel := context.WithTimeout(context.Background(), m.revokeWait)
	go func() {
		defer cancel()
		done <- m.provider.Revoke(revokeCtx, token)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.log.Warn(ctx, "token revoke failed, continuing sign-out", "error", err)
		}
	case <-time.After(m.revokeWait):
		m.log.Warn(ctx, "token revoke timed out, continuing sign-out")
	}
	return nil
}
