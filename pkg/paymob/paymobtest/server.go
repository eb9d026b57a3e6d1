// Package paymobtest provides an in-process fake of the Paymob Accept API for tests.
package paymobtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

// Failure makes an endpoint answer with Status and a {"message": Message} body.
type Failure struct {
	Status  int
	Message string
}

// Call is one request the fake received.
type Call struct {
	Path string
	Body map[string]any
}

// Server is a fake gateway. Tokens are issued as "tok-1", "tok-2", ... and
// only the most recent one is accepted by the order and payment key endpoints.
type Server struct {
	*httptest.Server

	APIKey string

	mu        sync.Mutex
	authDelay time.Duration
	calls     []Call
	failures  map[string]Failure
	tokens    int64
	orderSeq  int64
	lastTok   string
	authHits  atomic.Int64
}

func NewServer(apiKey string) *Server {
	s := &Server{APIKey: apiKey, failures: map[string]Failure{}, orderSeq: 1000}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/tokens", s.handleAuth)
	mux.HandleFunc("/api/ecommerce/orders", s.handleOrder)
	mux.HandleFunc("/api/acceptance/payment_keys", s.handlePaymentKey)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetAuthDelay slows down authentication responses.
func (s *Server) SetAuthDelay(d time.Duration) {
	s.mu.Lock()
	s.authDelay = d
	s.mu.Unlock()
}

// Fail makes every later request to path fail with f.
func (s *Server) Fail(path string, f Failure) {
	s.mu.Lock()
	s.failures[path] = f
	s.mu.Unlock()
}

// Calls returns the requests received so far in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the requests received on path.
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// AuthCalls is the number of authentication requests received.
func (s *Server) AuthCalls() int { return int(s.authHits.Load()) }

// LastToken is the most recently issued token.
func (s *Server) LastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTok
}

func (s *Server) record(r *http.Request) (map[string]any, *Failure) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Path: r.URL.Path, Body: body})
	if f, ok := s.failures[r.URL.Path]; ok {
		return body, &f
	}
	return body, nil
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.authHits.Add(1)
	s.mu.Lock()
	delay := s.authDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	body, fail := s.record(r)
	if fail != nil {
		writeJSON(w, fail.Status, map[string]any{"message": fail.Message})
		return
	}
	if body["api_key"] != s.APIKey {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Incorrect credentials"})
		return
	}
	s.mu.Lock()
	s.tokens++
	s.lastTok = fmt.Sprintf("tok-%d", s.tokens)
	tok := s.lastTok
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"token": tok, "profile": map[string]any{"id": 1}})
}

func (s *Server) authorized(body map[string]any) bool {
	tok, _ := body["auth_token"].(string)
	if tok == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok == s.lastTok
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	body, fail := s.record(r)
	if fail != nil {
		writeJSON(w, fail.Status, map[string]any{"message": fail.Message})
		return
	}
	if !s.authorized(body) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	s.mu.Lock()
	s.orderSeq++
	id := s.orderSeq
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "amount_cents": body["amount_cents"]})
}

func (s *Server) handlePaymentKey(w http.ResponseWriter, r *http.Request) {
	body, fail := s.record(r)
	if fail != nil {
		writeJSON(w, fail.Status, map[string]any{"message": fail.Message})
		return
	}
	if !s.authorized(body) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": fmt.Sprintf("pk-%v", body["order_id"])})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
