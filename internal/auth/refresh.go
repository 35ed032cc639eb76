package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"strava-stats/internal/store"
)

// refreshMargin renews tokens slightly before Strava considers them expired
const refreshMargin = 60 * time.Second

// TokenStore persists rotated tokens
type TokenStore interface {
	UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource refreshes the Strava token when it is about to expire and
// writes every new token back to the store, since Strava rotates refresh
// tokens on each use.
type TokenSource struct {
	mu     sync.Mutex
	config *oauth2.Config
	token  *oauth2.Token
	store  TokenStore
	logger *slog.Logger
}

// NewTokenSource creates a TokenSource starting from token
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, ts TokenStore, logger *slog.Logger) *TokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenSource{config: cfg, token: token, store: ts, logger: logger}
}

// LoadTokenSource builds a TokenSource from the credentials saved in db.
// It returns store.ErrNoAuth when nobody has logged in yet.
func LoadTokenSource(ctx context.Context, cfg *oauth2.Config, db *store.DB, logger *slog.Logger) (*TokenSource, error) {
	a, err := db.GetAuth(ctx)
	if err != nil {
		return nil, err
	}
	return NewTokenSource(cfg, TokenFromAuth(a), db, logger), nil
}

// Token returns a valid token, refreshing it if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshMargin {
		return ts.token, nil
	}

	// Force the refresh: oauth2's own expiry margin is shorter than ours
	stale := *ts.token
	stale.Expiry = time.Now().Add(-time.Second)

	ctx := context.Background()
	newToken, err := ts.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if ts.store != nil {
		if err := ts.store.UpdateTokens(ctx, newToken.AccessToken, newToken.RefreshToken, newToken.Expiry); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}
	ts.logger.Debug("strava token refreshed", "expires_at", newToken.Expiry)

	ts.token = newToken
	return newToken, nil
}

// IsExpired reports whether the token is expired or within the refresh margin
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshMargin
}
