package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/metrics"
	"github.com/nkiryanov/aicheck/internal/models"
	"github.com/nkiryanov/aicheck/internal/repository"
	"github.com/nkiryanov/aicheck/internal/service/copyleaks"
)

// Identity service tokens live for 48 hours; used when the login response does not say
const defaultTTL = 48 * time.Hour

type loginClient interface {
	Login(ctx context.Context, email string, key string) (copyleaks.LoginResponse, error)
}

type loginRecorder interface {
	ObserveLogin(result string)
}

// Token manager config
type Config struct {
	// Account credentials to login with
	// Required to be set
	Email  string
	APIKey string

	// Lifetime assumed when the identity service does not report expiry
	// If not set than default is used
	DefaultTTL time.Duration

	// Clock; time.Now if not set
	Now func() time.Time
}

// TokenManager hands out a valid credential, logging in lazily when the current one is absent or expired
// Safe for concurrent use: concurrent callers with an expired credential cause a single login
type TokenManager struct {
	email      string
	apiKey     string
	defaultTTL time.Duration
	now        func() time.Time

	client   loginClient
	repo     repository.CredentialRepo
	logger   logger.Logger
	recorder loginRecorder

	mu      sync.Mutex
	current models.Credential
	loaded  bool // persisted credential was read already
}

func New(cfg Config, client loginClient, repo repository.CredentialRepo, l logger.Logger, m *metrics.Metrics) (*TokenManager, error) {
	if cfg.Email == "" || cfg.APIKey == "" {
		return nil, errors.New("email and api key must not be empty")
	}
	if client == nil || repo == nil {
		return nil, errors.New("login client and credential repo are required")
	}

	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = defaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &TokenManager{
		email:      cfg.Email,
		apiKey:     cfg.APIKey,
		defaultTTL: cfg.DefaultTTL,
		now:        cfg.Now,
		client:     client,
		repo:       repo,
		logger:     l.With("component", "tokenmanager"),
		recorder:   m,
	}, nil
}

// Token returns the current credential if it has not expired, otherwise logs in and persists the new one
// Login failure is returned wrapped into apperrors.ErrLoginFailed
func (m *TokenManager) Token(ctx context.Context) (models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		m.current = m.loadPersisted(ctx)
		m.loaded = true
	}

	if m.current.Valid(m.now()) {
		return m.current, nil
	}

	c, err := m.login(ctx)
	if err != nil {
		return models.Credential{}, err
	}

	m.current = c
	return c, nil
}

// Invalidate forgets the current credential, so the next Token call logs in
// Used when the API rejects a token before its expiry
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = models.Credential{}
	m.loaded = true
}

func (m *TokenManager) loadPersisted(ctx context.Context) models.Credential {
	c, err := m.repo.Get(ctx)
	switch {
	case err == nil:
		m.logger.Debug("Loaded persisted credential", "expires_at", c.ExpiresAt)
		return c
	case errors.Is(err, apperrors.ErrCredentialNotFound):
		m.logger.Debug("No persisted credential")
	default:
		m.logger.Warn("Failed to load persisted credential, login required", "error", err)
	}
	return models.Credential{}
}

func (m *TokenManager) login(ctx context.Context) (models.Credential, error) {
	resp, err := m.client.Login(ctx, m.email, m.apiKey)
	if err != nil {
		m.recorder.ObserveLogin(metrics.LoginFailed)
		m.logger.Error("Failed to get auth token", "error", err)
		return models.Credential{}, fmt.Errorf("%w: %w", apperrors.ErrLoginFailed, err)
	}
	m.recorder.ObserveLogin(metrics.LoginSucceeded)

	c := models.Credential{
		AccessToken: resp.AccessToken,
		IssuedAt:    resp.Issued,
		ExpiresAt:   resp.Expires,
	}
	if c.IssuedAt.IsZero() {
		c.IssuedAt = m.now()
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = m.expiryFromToken(c.AccessToken, c.IssuedAt)
	}

	if err := m.repo.Save(ctx, c); err != nil {
		// In-memory copy is still good for this process
		m.logger.Warn("Failed to persist credential", "error", err)
	}

	m.logger.Info("Logged in to identity service", "expires_at", c.ExpiresAt)
	return c, nil
}

// expiryFromToken reads 'exp' claim when the token is a JWT, otherwise assumes default TTL
// Signature is not verified: the token is ours to send, not to trust
func (m *TokenManager) expiryFromToken(token string, issuedAt time.Time) time.Time {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}

	return issuedAt.Add(m.defaultTTL)
}
