package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

func TestOAuthProvider_SilentRefreshGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	}))
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		TokenURL:     srv.URL,
		RefreshToken: "refresh-1",
		HTTP:         srv.Client(),
	})

	token, err := p.Request(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)
}

func TestOAuthProvider_SilentWithoutRefreshTokenIsAuthFailed(t *testing.T) {
	p := NewOAuthProvider(OAuthConfig{ClientID: "client-1", TokenURL: "http://unused.invalid"})

	_, err := p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeAuthFailed, syncerr.CodeOf(err))
}

func TestOAuthProvider_InvalidGrantClearsStoredConsent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been revoked."}`)
	}))
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		TokenURL:     srv.URL,
		RefreshToken: "revoked-refresh",
		HTTP:         srv.Client(),
	})

	_, err := p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeAuthFailed, syncerr.CodeOf(err))

	// The dead refresh token is gone: the next attempt fails locally.
	_, err = p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeAuthFailed, syncerr.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuthProvider_RotatedRefreshTokenIsPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok-1","refresh_token":"refresh-2","expires_in":3600}`)
	}))
	defer srv.Close()

	var persisted string
	p := NewOAuthProvider(OAuthConfig{
		ClientID:            "client-1",
		TokenURL:            srv.URL,
		RefreshToken:        "refresh-1",
		PersistRefreshToken: func(token string) { persisted = token },
		HTTP:                srv.Client(),
	})

	_, err := p.Request(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", persisted)
}

func TestOAuthProvider_MetadataDiscovery(t *testing.T) {
	var metadataCalls atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		metadataCalls.Add(1)
		fmt.Fprintf(w, `{"token_endpoint":"%s/token","device_authorization_endpoint":"%s/device","revocation_endpoint":"%s/revoke"}`,
			srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		MetadataURL:  srv.URL + "/.well-known/openid-configuration",
		RefreshToken: "refresh-1",
		HTTP:         srv.Client(),
	})

	// Discovery happens once, then the endpoints are memoized.
	for range 3 {
		_, err := p.Request(context.Background(), false)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), metadataCalls.Load())
}

func TestOAuthProvider_MetadataFailureIsRetryable(t *testing.T) {
	var metadataCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metadataCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		MetadataURL:  srv.URL,
		RefreshToken: "refresh-1",
		HTTP:         srv.Client(),
	})

	_, err := p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeIdentityLoad, syncerr.CodeOf(err))
	assert.True(t, syncerr.IsRetryable(err))

	// A failed load is not cached; the next call retries discovery.
	_, err = p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, int32(2), metadataCalls.Load())
}

func TestOAuthProvider_MissingClientIDIsConfigError(t *testing.T) {
	p := NewOAuthProvider(OAuthConfig{TokenURL: "http://unused.invalid"})

	_, err := p.Request(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeAuthConfigMissing, syncerr.CodeOf(err))
}

func TestOAuthProvider_DeviceFlowPollsUntilApproved(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"device_code":"dev-1","user_code":"ABCD-EFGH","verification_uri":"https://example.com/activate","expires_in":60,"interval":1}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			fmt.Fprint(w, `{"error":"authorization_pending"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-approved","expires_in":3600}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var announcedURI, announcedCode string
	p := NewOAuthProvider(OAuthConfig{
		ClientID:      "client-1",
		TokenURL:      srv.URL + "/token",
		DeviceAuthURL: srv.URL + "/device",
		Announce: func(verificationURI, userCode string) {
			announcedURI, announcedCode = verificationURI, userCode
		},
		HTTP: srv.Client(),
	})

	token, err := p.Request(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "tok-approved", token.AccessToken)
	assert.Equal(t, "https://example.com/activate", announcedURI)
	assert.Equal(t, "ABCD-EFGH", announcedCode)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestOAuthProvider_DeviceFlowDenialIsAuthFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"device_code":"dev-1","user_code":"ABCD","verification_uri":"https://example.com","expires_in":60,"interval":1}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"access_denied"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{
		ClientID:      "client-1",
		TokenURL:      srv.URL + "/token",
		DeviceAuthURL: srv.URL + "/device",
		HTTP:          srv.Client(),
	})

	_, err := p.Request(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeAuthFailed, syncerr.CodeOf(err))
}
