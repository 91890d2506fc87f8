package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexora-app/lexora-sync/internal/logging"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

// metadataLoadTimeout bounds the provider-metadata fetch. The result of a
// timed-out load is a retryable GIS_LOAD_FAILED, never a crash.
const metadataLoadTimeout = 10 * time.Second

const defaultTokenLifetime = time.Hour

// Doer is the HTTP seam; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuthConfig configures the production token provider.
//
// Silent acquisition runs a refresh-token grant; interactive acquisition
// runs the device-authorization grant, which delegates consent to the
// user's browser. Endpoints are discovered from MetadataURL unless given
// explicitly.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string

	MetadataURL   string
	TokenURL      string
	DeviceAuthURL string
	RevokeURL     string

	// RefreshToken seeds silent acquisition; the provider keeps the most
	// recent one handed out by the identity provider.
	RefreshToken string

	// Announce tells the user where to approve the device-flow consent.
	Announce func(verificationURI, userCode string)

	// PersistRefreshToken, when set, receives every rotated refresh token.
	PersistRefreshToken func(refreshToken string)

	HTTP   Doer
	Logger logging.Logger
}

type endpoints struct {
	tokenURL      string
	deviceAuthURL string
	revokeURL     string
}

// OAuthProvider implements TokenProvider against an OAuth-style identity
// provider. Endpoint discovery is memoized and shared: concurrent callers
// wait on one load attempt, and a failed load stays retryable.
type OAuthProvider struct {
	cfg  OAuthConfig
	http Doer
	log  logging.Logger

	mu           sync.Mutex
	eps          *endpoints
	loading      chan struct{}
	loadErr      error
	refreshToken string
}

func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	p := &OAuthProvider{cfg: cfg, http: cfg.HTTP, log: cfg.Logger, refreshToken: cfg.RefreshToken}
	if p.http == nil {
		p.http = &http.Client{Timeout: 30 * time.Second}
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	return p
}

// ensureEndpoints returns the provider endpoints, loading metadata at most
// once at a time. Explicitly configured endpoints short-circuit discovery.
func (p *OAuthProvider) ensureEndpoints(ctx context.Context) (*endpoints, error) {
	if p.cfg.ClientID == "" {
		return nil, syncerr.New(syncerr.CodeAuthConfigMissing, "identity client id is not configured")
	}

	p.mu.Lock()
	if p.eps == nil && p.cfg.TokenURL != "" {
		p.eps = &endpoints{
			tokenURL:      p.cfg.TokenURL,
			deviceAuthURL: p.cfg.DeviceAuthURL,
			revokeURL:     p.cfg.RevokeURL,
		}
	}
	if p.eps != nil {
		eps := p.eps
		p.mu.Unlock()
		return eps, nil
	}
	if p.loading == nil {
		p.loading = make(chan struct{})
		go p.loadMetadata()
	}
	loading := p.loading
	p.mu.Unlock()

	select {
	case <-loading:
	case <-ctx.Done():
		return nil, syncerr.Wrap(syncerr.CodeIdentityLoad, "identity provider metadata load interrupted", ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eps != nil {
		return p.eps, nil
	}
	err := p.loadErr
	if err == nil {
		err = syncerr.Retryable(syncerr.CodeIdentityLoad, "identity provider metadata unavailable")
	}
	return nil, err
}

func (p *OAuthProvider) loadMetadata() {
	ctx, cancel := context.WithTimeout(context.Background(), metadataLoadTimeout)
	defer cancel()

	eps, err := p.fetchMetadata(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.loading)
	p.loading = nil
	if err != nil {
		// Not cached: the next caller starts a fresh attempt.
		p.loadErr = err
		return
	}
	p.eps = eps
	p.loadErr = nil
}

func (p *OAuthProvider) fetchMetadata(ctx context.Context) (*endpoints, error) {
	if p.cfg.MetadataURL == "" {
		return nil, syncerr.Retryable(syncerr.CodeIdentityLoad, "identity provider metadata URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.MetadataURL, nil)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeIdentityLoad, "failed to build metadata request", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeIdentityLoad,
			Message:   "failed to load identity provider metadata",
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeIdentityLoad,
			Message:   fmt.Sprintf("identity provider metadata request failed with %d", resp.StatusCode),
			Retryable: true,
			Status:    resp.StatusCode,
		}
	}

	var doc struct {
		TokenEndpoint               string `json:"token_endpoint"`
		DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
		RevocationEndpoint          string `json:"revocation_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeIdentityLoad,
			Message:   "identity provider metadata is not valid JSON",
			Retryable: true,
			Err:       err,
		}
	}
	if doc.TokenEndpoint == "" {
		return nil, syncerr.Retryable(syncerr.CodeIdentityLoad, "identity provider metadata lacks a token endpoint")
	}
	return &endpoints{
		tokenURL:      doc.TokenEndpoint,
		deviceAuthURL: doc.DeviceAuthorizationEndpoint,
		revokeURL:     doc.RevocationEndpoint,
	}, nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *OAuthProvider) postForm(ctx context.Context, endpoint string, form url.Values) (*tokenResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, syncerr.Wrap(syncerr.CodeUnknown, "failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, 0, &syncerr.Error{
			Code:      syncerr.CodeNetworkFailure,
			Message:   "network failure while calling the identity provider",
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, resp.StatusCode, syncerr.Wrap(syncerr.CodeAuthFailed, "identity provider returned invalid JSON", err)
	}
	return &parsed, resp.StatusCode, nil
}

// expiry derives the token expiry: expires_in when declared, otherwise the
// exp claim of a JWT-shaped token (unverified parse, the value is only a
// cache hint), otherwise a conservative default.
func expiry(tr *tokenResponse, now time.Time) time.Time {
	if tr.ExpiresIn > 0 {
		return now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(defaultTokenLifetime)
}

func (p *OAuthProvider) token(tr *tokenResponse) *Token {
	if tr.RefreshToken != "" {
		p.mu.Lock()
		p.refreshToken = tr.RefreshToken
		p.mu.Unlock()
		if p.cfg.PersistRefreshToken != nil {
			p.cfg.PersistRefreshToken(tr.RefreshToken)
		}
	}
	return &Token{AccessToken: tr.AccessToken, ExpiresAt: expiry(tr, time.Now())}
}

// Request acquires a token. Silent mode runs a refresh-token grant and
// never prompts; interactive mode runs the device-authorization grant.
func (p *OAuthProvider) Request(ctx context.Context, interactive bool) (*Token, error) {
	eps, err := p.ensureEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	if !interactive {
		return p.silent(ctx, eps)
	}
	return p.deviceFlow(ctx, eps)
}

func (p *OAuthProvider) silent(ctx context.Context, eps *endpoints) (*Token, error) {
	p.mu.Lock()
	refresh := p.refreshToken
	p.mu.Unlock()

	if refresh == "" {
		return nil, syncerr.New(syncerr.CodeAuthFailed, "no stored consent, interactive sign-in required")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {p.cfg.ClientID},
	}
	if p.cfg.ClientSecret != "" {
		form.Set("client_secret", p.cfg.ClientSecret)
	}

	tr, status, err := p.postForm(ctx, eps.tokenURL, form)
	if err != nil {
		return nil, err
	}
	if tr.Error != "" || tr.AccessToken == "" {
		// A dead refresh token means consent is gone, not that the
		// provider is down.
		if tr.Error == "invalid_grant" {
			p.mu.Lock()
			p.refreshToken = ""
			p.mu.Unlock()
		}
		return nil, &syncerr.Error{
			Code:    syncerr.CodeAuthFailed,
			Message: authMessage(tr, "silent token acquisition failed"),
			Status:  status,
		}
	}
	return p.token(tr), nil
}

type deviceAuthResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

func (p *OAuthProvider) deviceFlow(ctx context.Context, eps *endpoints) (*Token, error) {
	if eps.deviceAuthURL == "" {
		return nil, syncerr.New(syncerr.CodeAuthConfigMissing, "identity provider does not expose a device authorization endpoint")
	}

	form := url.Values{"client_id": {p.cfg.ClientID}}
	if p.cfg.Scope != "" {
		form.Set("scope", p.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eps.deviceAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeUnknown, "failed to build device authorization request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeNetworkFailure,
			Message:   "network failure while starting device authorization",
			Retryable: true,
			Err:       err,
		}
	}
	var da deviceAuthResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&da)
	resp.Body.Close()
	if decodeErr != nil || da.DeviceCode == "" {
		return nil, syncerr.New(syncerr.CodeAuthFailed, "device authorization request was rejected")
	}

	if p.cfg.Announce != nil {
		p.cfg.Announce(da.VerificationURI, da.UserCode)
	}

	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(da.ExpiresIn) * time.Second)
	if da.ExpiresIn <= 0 {
		deadline = time.Now().Add(5 * time.Minute)
	}

	pollForm := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"device_code": {da.DeviceCode},
		"client_id":   {p.cfg.ClientID},
	}
	if p.cfg.ClientSecret != "" {
		pollForm.Set("client_secret", p.cfg.ClientSecret)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, syncerr.Wrap(syncerr.CodeAuthFailed, "sign-in cancelled", ctx.Err())
		case <-time.After(interval):
		}

		if time.Now().After(deadline) {
			return nil, syncerr.New(syncerr.CodeAuthFailed, "device authorization expired before it was approved")
		}

		tr, status, err := p.postForm(ctx, eps.tokenURL, pollForm)
		if err != nil {
			return nil, err
		}
		switch tr.Error {
		case "":
			if tr.AccessToken == "" {
				return nil, syncerr.New(syncerr.CodeAuthFailed, "identity provider returned an empty token")
			}
			return p.token(tr), nil
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 5 * time.Second
			continue
		default:
			return nil, &syncerr.Error{
				Code:    syncerr.CodeAuthFailed,
				Message: authMessage(tr, "sign-in was not approved"),
				Status:  status,
			}
		}
	}
}

// Revoke invalidates the token with the identity provider. Callers bound
// the wait; this method just does the round trip.
func (p *OAuthProvider) Revoke(ctx context.Context, accessToken string) error {
	eps, err := p.ensureEndpoints(ctx)
	if err != nil {
		return err
	}
	if eps.revokeURL == "" {
		return nil
	}

	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eps.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke request failed with %d", resp.StatusCode)
	}
	return nil
}

func authMessage(tr *tokenResponse, fallback string) string {
	if tr.ErrorDescription != "" {
		return tr.ErrorDescription
	}
	if tr.Error != "" {
		return tr.Error
	}
	return fallback
}
