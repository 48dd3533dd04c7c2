package appeears

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bloomwatch/backend/internal/domain"
)

// DefaultTokenMaxAge is how long a login token is reused before re-login
const DefaultTokenMaxAge = 11 * time.Hour

// Credential is a bearer token and the moment it was obtained
type Credential struct {
	Token      string
	AcquiredAt time.Time
}

// SessionConfig holds login settings for the AppEEARS account
type SessionConfig struct {
	BaseURL  string
	Username string
	Password string
	MaxAge   time.Duration
	Timeout  time.Duration
}

// Session owns the cached AppEEARS credential
type Session struct {
	cfg        SessionConfig
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	refreshMu sync.Mutex // serializes logins

	mu   sync.RWMutex
	cred *Credential
}

// NewSession creates a session manager. No network call is made until a
// credential is requested.
func NewSession(cfg SessionConfig, logger *zap.Logger) *Session {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultTokenMaxAge
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Configured reports whether a username and password are set
func (s *Session) Configured() bool {
	return s.cfg.Username != "" && s.cfg.Password != ""
}

// Cached reports whether a credential is held, expired or not
func (s *Session) Cached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred != nil
}

// ValidCredential returns a credential younger than MaxAge, logging in when
// needed. It returns domain.ErrNoCredential when the account is not
// configured or the login fails; a failed login keeps the previous value.
func (s *Session) ValidCredential(ctx context.Context) (Credential, error) {
	if !s.Configured() {
		return Credential{}, domain.ErrNoCredential
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if cred, ok := s.fresh(); ok {
		return cred, nil
	}

	cred, err := s.login(ctx)
	if err != nil {
		s.logger.Error("appeears login failed", zap.Error(err))
		return Credential{}, fmt.Errorf("%w: %v", domain.ErrNoCredential, err)
	}
	return cred, nil
}

// Refresh forces a new login regardless of the cached token's age
func (s *Session) Refresh(ctx context.Context) (Credential, error) {
	if !s.Configured() {
		return Credential{}, domain.ErrNoCredential
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cred, err := s.login(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", domain.ErrNoCredential, err)
	}
	return cred, nil
}

// Invalidate drops the cached credential after the upstream rejected it
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
}

func (s *Session) fresh() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return Credential{}, false
	}
	if s.now().Sub(s.cred.AcquiredAt) > s.cfg.MaxAge {
		return Credential{}, false
	}
	return *s.cred, true
}

func (s *Session) login(ctx context.Context) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/login", http.NoBody)
	if err != nil {
		return Credential{}, fmt.Errorf("appeears: failed to create login request: %w", err)
	}
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("appeears: login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, newUpstreamError("login", resp.StatusCode, body)
	}

	var out loginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Credential{}, fmt.Errorf("appeears: failed to decode login response: %w", err)
	}
	if out.Token == "" {
		return Credential{}, fmt.Errorf("appeears: login response has no token")
	}

	cred := Credential{Token: out.Token, AcquiredAt: s.now()}
	s.mu.Lock()
	s.cred = &cred
	s.mu.Unlock()

	s.logger.Info("appeears token obtained", zap.String("expiration", out.Expiration))
	return cred, nil
}
