package paymob

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Authenticator obtains a fresh session token from the gateway.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (string, error)
}

// ExpiryFunc reports when a token stops being valid. ok is false when the
// token carries no readable expiry.
type ExpiryFunc func(token string) (expiry time.Time, ok bool)

// Session holds the process-wide gateway token. The slot is lock-guarded and
// concurrent refreshes coalesce into one upstream call.
type Session struct {
	auth   Authenticator
	apiKey string
	ttl    time.Duration
	expiry ExpiryFunc
	logger *zap.Logger

	mu    sync.RWMutex
	token *oauth2.Token
	group singleflight.Group
}

type SessionOption func(*Session)

// WithTTL sets the lifetime assumed for tokens without a readable expiry.
// Zero means such tokens never expire.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.ttl = ttl }
}

func WithExpiry(fn ExpiryFunc) SessionOption {
	return func(s *Session) { s.expiry = fn }
}

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func NewSession(auth Authenticator, apiKey string, opts ...SessionOption) *Session {
	s := &Session{
		auth:   auth,
		apiKey: apiKey,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored token, or "" when the slot is empty or expired.
func (s *Session) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.token.Valid() {
		return ""
	}
	return s.token.AccessToken
}

// Set overwrites the slot.
func (s *Session) Set(token string) {
	t := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if token != "" {
		t.Expiry = s.expiryOf(token)
	}
	s.mu.Lock()
	s.token = t
	s.mu.Unlock()
}

// Invalidate clears the slot if it still holds token. A newer token stored by
// another request is left alone.
func (s *Session) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != nil && s.token.AccessToken == token {
		s.token = nil
		s.logger.Info("paymob session token invalidated")
	}
}

// Token returns the stored token, authenticating first if the slot is empty.
func (s *Session) Token(ctx context.Context) (string, error) {
	if tok := s.Get(); tok != "" {
		return tok, nil
	}
	return s.refresh(ctx, false)
}

// Refresh always authenticates and overwrites the slot with the new token.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	return s.refresh(ctx, true)
}

// Lazy and forced refreshes fly under separate keys so a forced caller never
// joins a flight that may return the cached token.
const (
	flightLazy   = "auth"
	flightForced = "auth-forced"
)

func (s *Session) refresh(ctx context.Context, force bool) (string, error) {
	key := flightLazy
	if force {
		key = flightForced
	}
	// The shared call outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		// A flight that finished between our Get and DoChan already filled the slot.
		if !force {
			if tok := s.Get(); tok != "" {
				return tok, nil
			}
		}
		tok, err := s.auth.Authenticate(flightCtx, s.apiKey)
		if err != nil {
			return "", err
		}
		s.Set(tok)
		s.logger.Info("paymob session token refreshed")
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Session) expiryOf(token string) time.Time {
	if s.expiry != nil {
		if exp, ok := s.expiry(token); ok {
			return exp
		}
	}
	if s.ttl > 0 {
		return time.Now().Add(s.ttl)
	}
	return time.Time{}
}
