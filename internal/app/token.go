package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// tokenEarlyExpiry is how long before expiry a cached access token is replaced.
const tokenEarlyExpiry = 60 * time.Second

type tokenDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TokenStore keeps the provider's OAuth tokens so a refreshed refresh token
// survives restarts.
type TokenStore struct {
	db tokenDB
}

func NewTokenStore(db tokenDB) *TokenStore {
	return &TokenStore{db: db}
}

// Latest returns the most recently saved token, or nil when none exists.
func (s *TokenStore) Latest(ctx context.Context) (*oauth2.Token, error) {
	q := `SELECT access_token, refresh_token, COALESCE(token_type, ''), expires_at
	      FROM tokens ORDER BY created_at DESC, id DESC LIMIT 1`
	var tok oauth2.Token
	err := s.db.QueryRow(ctx, q).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tok.Expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load provider token: %w", err)
	}
	return &tok, nil
}

func (s *TokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	q := `INSERT INTO tokens (access_token, refresh_token, token_type, expires_at, created_at)
	      VALUES ($1, $2, $3, $4, now())`
	if _, err := s.db.Exec(ctx, q, tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Expiry.UTC()); err != nil {
		return fmt.Errorf("save provider token: %w", err)
	}
	return nil
}

// TokenPersister is implemented by TokenStore.
type TokenPersister interface {
	Latest(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
}

type ProviderAuthConfig struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	// RefreshToken seeds the flow when nothing has been stored yet.
	RefreshToken string
	// AccessToken, when set, is used as is and never refreshed.
	AccessToken string
}

// ProviderEndpoint returns the OAuth endpoint for the configured provider.
func ProviderEndpoint(provider, tokenURL string) oauth2.Endpoint {
	if provider == "google" {
		return google.Endpoint
	}
	return oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
}

// NewProviderTokenSource returns a token source that reuses the stored access
// token until shortly before it expires, then refreshes and persists the
// result. ctx bounds every refresh and must outlive the source.
func NewProviderTokenSource(ctx context.Context, cfg ProviderAuthConfig, store TokenPersister, logger *zap.Logger) (oauth2.TokenSource, error) {
	if cfg.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}), nil
	}

	stored, err := store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	refresh := cfg.RefreshToken
	if stored != nil && stored.RefreshToken != "" {
		refresh = stored.RefreshToken
	}
	if refresh == "" {
		return nil, errors.New("no provider refresh token stored or configured")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	src := &refreshingSource{
		ctx: ctx,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
		},
		store:        store,
		refreshToken: refresh,
		logger:       logger,
	}
	return oauth2.ReuseTokenSourceWithExpiry(stored, src, tokenEarlyExpiry), nil
}

// refreshingSource performs a refresh on every call. It is only called by the
// reuse wrapper once the cached token is close to expiry.
type refreshingSource struct {
	ctx    context.Context
	conf   *oauth2.Config
	store  TokenPersister
	logger *zap.Logger

	mu           sync.Mutex
	refreshToken string
}

func (s *refreshingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.conf.TokenSource(s.ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh provider token: %w", err)
	}
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	if err := s.store.Save(s.ctx, tok); err != nil {
		// The token is still usable for this process.
		s.logger.Warn("provider token not persisted", zap.Error(err))
	}
	s.logger.Info("provider token refreshed", zap.Time("expiry", tok.Expiry))
	return tok, nil
}

// NewProviderHTTPClient authorizes every request with src.
func NewProviderHTTPClient(src oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}
