package paymob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymob-relay/pkg/paymob/paymobtest"
)

// countingAuth issues "t1", "t2", ... and counts calls.
type countingAuth struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (a *countingAuth) Authenticate(ctx context.Context, apiKey string) (string, error) {
	n := a.calls.Add(1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return "", a.err
	}
	return "t" + string(rune('0'+n)), nil
}

// gatedAuth blocks every call until release is closed.
type gatedAuth struct {
	calls   atomic.Int64
	release chan struct{}
}

func (a *gatedAuth) Authenticate(ctx context.Context, apiKey string) (string, error) {
	n := a.calls.Add(1)
	<-a.release
	return fmt.Sprintf("g%d", n), nil
}

func TestSession_GetSet(t *testing.T) {
	s := NewSession(&countingAuth{}, "key")
	assert.Empty(t, s.Get())

	s.Set("first")
	assert.Equal(t, "first", s.Get())

	s.Set("second")
	assert.Equal(t, "second", s.Get(), "Set must overwrite the slot")
}

func TestSession_TokenLazilyAuthenticatesOnce(t *testing.T) {
	auth := &countingAuth{}
	s := NewSession(auth, "key")

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)

	tok, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.EqualValues(t, 1, auth.calls.Load())
}

func TestSession_RefreshOverwrites(t *testing.T) {
	auth := &countingAuth{}
	s := NewSession(auth, "key")

	first, err := s.Refresh(context.Background())
	require.NoError(t, err)
	second, err := s.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, s.Get())
	assert.EqualValues(t, 2, auth.calls.Load())
}

func TestSession_ConcurrentEmptySlotCoalesces(t *testing.T) {
	auth := &countingAuth{delay: 50 * time.Millisecond}
	s := NewSession(auth, "key")

	const n = 20
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = s.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "t1", tokens[i])
	}
	assert.EqualValues(t, 1, auth.calls.Load())
}

func TestSession_AuthFailureLeavesSlotEmpty(t *testing.T) {
	boom := newAuthError(500, "down", errors.New("status 500"))
	s := NewSession(&countingAuth{err: boom}, "key")

	_, err := s.Token(context.Background())
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Empty(t, s.Get())
}

func TestSession_Invalidate(t *testing.T) {
	s := NewSession(&countingAuth{}, "key")
	s.Set("old")

	s.Invalidate("other")
	assert.Equal(t, "old", s.Get(), "a different token must not clear the slot")

	s.Invalidate("old")
	assert.Empty(t, s.Get())
}

func TestSession_ExpiredTokenIsRefreshed(t *testing.T) {
	auth := &countingAuth{}
	expiries := map[string]time.Time{
		"stale": time.Now().Add(-time.Minute),
	}
	s := NewSession(auth, "key", WithExpiry(func(tok string) (time.Time, bool) {
		exp, ok := expiries[tok]
		return exp, ok
	}))
	s.Set("stale")
	assert.Empty(t, s.Get())

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.EqualValues(t, 1, auth.calls.Load())
}

func TestSession_TTLFallback(t *testing.T) {
	s := NewSession(&countingAuth{}, "key", WithTTL(time.Millisecond))
	s.Set("short-lived")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.Get())

	s = NewSession(&countingAuth{}, "key", WithTTL(time.Hour))
	s.Set("long-lived")
	assert.Equal(t, "long-lived", s.Get())
}

func TestSession_CallerCancellation(t *testing.T) {
	auth := &countingAuth{delay: 100 * time.Millisecond}
	s := NewSession(auth, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The shared call still completes and fills the slot.
	require.Eventually(t, func() bool { return s.Get() != "" }, time.Second, 10*time.Millisecond)
}

func TestSession_WithRealClient(t *testing.T) {
	srv := paymobtest.NewServer("secret-key")
	defer srv.Close()

	s := NewSession(NewClient(srv.URL, time.Second, nil), "secret-key")
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.LastToken(), tok)
	assert.Equal(t, 1, srv.AuthCalls())
}

func TestSession_RefreshDoesNotJoinLazyFlight(t *testing.T) {
	auth := &gatedAuth{release: make(chan struct{})}
	s := NewSession(auth, "key")
	ctx := context.Background()

	lazyDone := make(chan string, 1)
	go func() {
		tok, _ := s.Token(ctx)
		lazyDone <- tok
	}()
	require.Eventually(t, func() bool { return auth.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	forcedDone := make(chan string, 1)
	go func() {
		tok, _ := s.Refresh(ctx)
		forcedDone <- tok
	}()
	require.Eventually(t, func() bool { return auth.calls.Load() == 2 }, time.Second, 5*time.Millisecond,
		"a forced refresh must authenticate on its own")

	close(auth.release)
	assert.Equal(t, "g1", <-lazyDone)
	assert.Equal(t, "g2", <-forcedDone)
}
