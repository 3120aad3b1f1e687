package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/models"
	"golang.org/x/oauth2"
)

const (
	accessTokenCacheKey = "crm:access_token"
	defaultTokenTTL     = time.Hour
	cacheExpiryMargin   = time.Minute
)

var (
	// ErrNotConfigured is returned when client credentials are missing
	ErrNotConfigured = errors.New("CRM client id and secret are not configured")
	// ErrNotAuthorized is returned before the first authorization-code exchange
	ErrNotAuthorized = errors.New("CRM integration settings not found, complete the OAuth authorization first")
)

// SettingsStore persists the integration settings singleton
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.IntegrationSettings, error)
	SaveSettings(ctx context.Context, settings *models.IntegrationSettings) error
}

// TokenCache is an optional shared cache for the current access token
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenService owns the OAuth tokens used to call the CRM API
type TokenService struct {
	oauth   *oauth2.Config
	http    *http.Client
	store   SettingsStore
	cache   TokenCache
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// NewTokenService creates a token service. cache may be nil.
func NewTokenService(opts Options, store SettingsStore, cache TokenCache, log logger.Logger) (*TokenService, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TokenService{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AccountsURL + "/oauth/v2/auth",
				TokenURL:  opts.AccountsURL + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:  opts.httpClient(),
		store: store,
		cache: cache,
		log:   log,
		now:   time.Now,
	}, nil
}

// WithMetrics makes the service count refresh-token grants on m
func (s *TokenService) WithMetrics(m *metrics.Metrics) *TokenService {
	s.metrics = m
	return s
}

func (s *TokenService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.http)
}

// AuthURL returns the consent page URL. Offline access is requested so the
// exchange yields a refresh token.
func (s *TokenService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens and saves them
func (s *TokenService) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return domain.NewBadRequestError("No authorization code received")
	}

	tok, err := s.oauth.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return domain.NewExternalServiceError("crm token exchange", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = &models.IntegrationSettings{}
	}
	if err := s.apply(ctx, settings, tok); err != nil {
		return err
	}
	s.log.Info("crm tokens saved from authorization code")
	return nil
}

// AccessToken returns a usable access token, refreshing it when the stored
// one is missing or expired
func (s *TokenService) AccessToken(ctx context.Context) (string, error) {
	if s.cache != nil {
		if tok, err := s.cache.Get(ctx, accessTokenCacheKey); err == nil && tok != "" {
			return tok, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	if settings == nil {
		return "", ErrNotAuthorized
	}

	now := s.now()
	if settings.HasValidAccessToken(now) {
		s.cacheToken(ctx, settings.AccessToken, settings.TokenExpiry.Sub(now))
		return settings.AccessToken, nil
	}
	if settings.RefreshToken == "" {
		return "", ErrNotAuthorized
	}

	src := s.oauth.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: settings.RefreshToken})
	tok, err := src.Token()
	s.metrics.RecordTokenRefresh(err == nil)
	if err != nil {
		return "", domain.NewExternalServiceError("crm token refresh", err)
	}
	if err := s.apply(ctx, settings, tok); err != nil {
		return "", err
	}
	s.log.Info("crm access token refreshed", "expires_at", settings.TokenExpiry)
	return settings.AccessToken, nil
}

// Invalidate forgets an access token the CRM rejected. The cached copy is
// dropped and, when the store still holds the same token, its expiry is
// cleared so the next AccessToken call refreshes.
func (s *TokenService) Invalidate(ctx context.Context, rejected string) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, accessTokenCacheKey); err != nil {
			s.log.Warn("failed to drop cached crm token", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.store.GetSettings(ctx)
	if err != nil || settings == nil || settings.AccessToken != rejected {
		return
	}
	settings.TokenExpiry = nil
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		s.log.Warn("failed to expire rejected crm token", "error", err)
		return
	}
	s.log.Info("rejected crm access token expired")
}

func (s *TokenService) apply(ctx context.Context, settings *models.IntegrationSettings, tok *oauth2.Token) error {
	now := s.now()
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenTTL)
	}

	settings.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		settings.RefreshToken = tok.RefreshToken
	}
	settings.TokenExpiry = &expiry
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save crm tokens: %w", err)
	}

	s.cacheToken(ctx, tok.AccessToken, expiry.Sub(now))
	return nil
}

func (s *TokenService) cacheToken(ctx context.Context, token string, remaining time.Duration) {
	if s.cache == nil {
		return
	}
	ttl := remaining - cacheExpiryMargin
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, accessTokenCacheKey, token, ttl); err != nil {
		s.log.Warn("failed to cache crm token", "error", err)
	}
}
