package igdb

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenURL is the identity endpoint issuing app access tokens.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// TokenConfig holds configuration for the credential exchange.
type TokenConfig struct {
	// ClientID and ClientSecret identify the application to the identity
	// endpoint. ClientID is also sent with every resource request.
	ClientID     string
	ClientSecret string

	// TokenURL is the identity endpoint. Defaults to DefaultTokenURL.
	TokenURL string

	// HTTPClient performs the exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// TokenProvider obtains and caches the bearer credential used for upstream
// requests. The credential is refreshed lazily once it has expired.
type TokenProvider struct {
	clientID string
	oauth    *clientcredentials.Config
	client   *http.Client
	now      func() time.Time

	mu    sync.RWMutex
	cred  Credential
	group singleflight.Group
}

// NewTokenProvider creates a new token provider. No exchange happens until
// the first call to GetToken.
func NewTokenProvider(config TokenConfig) *TokenProvider {
	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &TokenProvider{
		clientID: config.ClientID,
		oauth: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: config.HTTPClient,
		now:    config.Now,
	}
}

// ClientID returns the configured client identifier.
func (p *TokenProvider) ClientID() string {
	return p.clientID
}

// GetToken returns the cached credential while it is valid, otherwise it
// exchanges the client credentials for a new one. Concurrent callers that
// find the credential expired share a single exchange. The exchange is not
// cancelled by any one caller; a caller whose ctx ends stops waiting and
// returns ctx.Err().
func (p *TokenProvider) GetToken(ctx context.Context) (Credential, error) {
	if cred, ok := p.cached(); ok {
		return cred, nil
	}

	exchangeCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("token", func() (interface{}, error) {
		// Double check, a previous flight may have just stored a credential.
		if cred, ok := p.cached(); ok {
			return cred, nil
		}

		cred, err := p.exchange(exchangeCtx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cred = cred
		p.mu.Unlock()
		return cred, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	}
}

func (p *TokenProvider) cached() (Credential, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.cred.Valid(p.now()) {
		return Credential{}, false
	}
	return p.cred, true
}

// exchange performs the client credentials grant against the identity
// endpoint. Expiry is computed from the returned lifetime in seconds.
func (p *TokenProvider) exchange(ctx context.Context) (Credential, error) {
	issuedAt := p.now()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauth.Token(ctx)
	if err != nil {
		return Credential{}, &AuthError{Err: err}
	}

	lifetime, ok := expiresIn(tok)
	if !ok || lifetime <= 0 {
		return Credential{}, &AuthError{Err: errors.New("token response missing expires_in")}
	}

	return Credential{
		Token:     tok.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(lifetime) * time.Second),
	}, nil
}

// expiresIn extracts the raw lifetime in seconds from the token response.
func expiresIn(tok *oauth2.Token) (int64, bool) {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
