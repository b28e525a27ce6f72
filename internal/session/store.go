// Package session tracks who is signed in and keeps their credential on disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// State is the position of the store in its lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ErrNotAuthenticated is returned by ValidateToken when there is no token to check.
var ErrNotAuthenticated = &apiclient.Error{Message: "Not authenticated", StatusCode: 401}

// Requester is the subset of *apiclient.Client the store needs.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Snapshot is a consistent view of the store delivered to subscribers.
type Snapshot struct {
	State State
	User  core.User
}

// Store owns the session state machine:
//
//	Anonymous -> Authenticating -> Authenticated
//	Authenticated -> Anonymous (logout or failed validation)
type Store struct {
	api    Requester
	creds  CredentialStore
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	state   State
	session core.Session

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// New creates an anonymous store; call Restore to pick up saved credentials.
// A nil creds keeps the session in memory only.
func New(api Requester, creds CredentialStore, logger *log.Logger) *Store {
	if creds == nil {
		creds = NewMemoryStore()
	}
	return &Store{
		api:    api,
		creds:  creds,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentSession),
		now:    time.Now,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Restore loads persisted credentials and decides the initial state. A JWT
// whose exp claim has passed is discarded without contacting the server, and
// credentials that cannot be decoded are cleared. Only a failure to clear them
// is returned.
func (s *Store) Restore(ctx context.Context) error {
	saved, err := s.creds.Load(ctx)
	if errors.Is(err, core.ErrNoSession) {
		s.transition(Anonymous, core.Session{})
		return nil
	}
	if err != nil {
		// Unreadable credentials are dropped so the user can sign in again.
		s.logger.WarnContext(ctx, "Stored credentials unreadable, clearing",
			log.FieldOperation, log.OpRestore, log.FieldError, err)
		s.transition(Anonymous, core.Session{})
		if cerr := s.creds.Clear(ctx); cerr != nil {
			return fmt.Errorf("clear unreadable credentials: %w", errors.Join(err, cerr))
		}
		return nil
	}

	if expired(saved.Token, s.now()) {
		s.logger.InfoContext(ctx, "Stored token expired, clearing", log.FieldUsername, saved.User.Username)
		if err := s.creds.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to clear expired credentials", log.FieldError, err)
		}
		s.transition(Anonymous, core.Session{})
		return nil
	}

	s.transition(Authenticated, saved)
	s.logger.DebugContext(ctx, "Session restored", log.FieldOperation, log.OpRestore, log.FieldUsername, saved.User.Username)
	return nil
}

// Login signs in with a username or email and persists the credential.
func (s *Store) Login(ctx context.Context, req core.LoginRequest) (core.User, error) {
	return s.authenticate(ctx, log.OpLogin, "/auth/login", req)
}

// Register creates the account and signs in as it.
func (s *Store) Register(ctx context.Context, req core.RegisterRequest) (core.User, error) {
	return s.authenticate(ctx, log.OpRegister, "/auth/register", req)
}

func (s *Store) authenticate(ctx context.Context, op, path string, body any) (core.User, error) {
	s.transition(Authenticating, core.Session{})

	var resp core.AuthResponse
	if err := s.api.Do(ctx, "POST", path, body, &resp); err != nil {
		s.transition(Anonymous, core.Session{})
		return core.User{}, apiclient.Normalize(err)
	}
	if resp.Token == "" {
		s.transition(Anonymous, core.Session{})
		return core.User{}, &apiclient.Error{Message: apiclient.FallbackMessage}
	}

	sess := core.Session{User: resp.User(), Token: resp.Token}
	if err := s.creds.Save(ctx, sess); err != nil {
		s.transition(Anonymous, core.Session{})
		return core.User{}, apiclient.Normalize(fmt.Errorf("save credentials: %w", err))
	}

	s.transition(Authenticated, sess)
	s.logger.InfoContext(ctx, "Signed in", log.FieldOperation, op, log.FieldUsername, sess.User.Username)
	return sess.User, nil
}

// Logout drops the in-memory session and the persisted credentials.
func (s *Store) Logout(ctx context.Context) error {
	s.transition(Anonymous, core.Session{})
	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.logger.InfoContext(ctx, "Signed out", log.FieldOperation, log.OpLogout)
	return nil
}

type validateResponse struct {
	Valid    *bool  `json:"valid"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ValidateToken asks the server whether the current token is still accepted.
// Any failure ends the session and clears persisted credentials; it is never
// retried.
func (s *Store) ValidateToken(ctx context.Context) error {
	current := s.current()
	if current.Token == "" {
		s.invalidate(ctx)
		return ErrNotAuthenticated
	}

	var resp validateResponse
	err := s.api.Do(ctx, "POST", "/auth/validate", nil, &resp)
	if err == nil && resp.Valid != nil && !*resp.Valid {
		err = &apiclient.Error{Message: "Invalid token", StatusCode: 401}
	}
	if err != nil {
		s.invalidate(ctx)
		s.logger.InfoContext(ctx, "Token rejected", log.FieldOperation, log.OpValidate, log.FieldError, err)
		return apiclient.Normalize(err)
	}

	// The server may report a fresher identity than the stored snapshot.
	if resp.Username != "" {
		refreshed := current
		refreshed.User = core.User{ID: resp.ID, Username: resp.Username, Email: resp.Email}
		if refreshed.User != current.User {
			if err := s.creds.Save(ctx, refreshed); err != nil {
				s.logger.WarnContext(ctx, "Failed to persist refreshed identity", log.FieldError, err)
			}
			s.transition(Authenticated, refreshed)
		}
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context) {
	s.transition(Anonymous, core.Session{})
	if err := s.creds.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear credentials", log.FieldError, err)
	}
}

// CheckUsername reports whether the username is free to register.
func (s *Store) CheckUsername(ctx context.Context, username string) (bool, error) {
	return s.available(ctx, "/auth/check-username/", username)
}

// CheckEmail reports whether the email is free to register.
func (s *Store) CheckEmail(ctx context.Context, email string) (bool, error) {
	return s.available(ctx, "/auth/check-email/", email)
}

func (s *Store) available(ctx context.Context, prefix, value string) (bool, error) {
	var out core.Availability
	if err := s.api.Do(ctx, "GET", prefix+url.PathEscape(strings.TrimSpace(value)), nil, &out); err != nil {
		return false, apiclient.Normalize(err)
	}
	return out.Available, nil
}

// Token implements apiclient.TokenSource. It is empty unless authenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated {
		return ""
	}
	return s.session.Token
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in identity, if any.
func (s *Store) User() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User, s.state == Authenticated
}

// Snapshot returns the current state and identity together.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state, User: s.session.User}
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn runs on the goroutine that caused the change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) current() core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) transition(to State, sess core.Session) {
	s.mu.Lock()
	s.state = to
	s.session = sess
	snap := Snapshot{State: to, User: sess.User}
	s.mu.Unlock()
	s.logger.Debug("Session state changed", log.FieldState, to.String())

	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// expired reports whether token is a JWT whose exp claim lies before now.
// Tokens that are not JWTs are treated as opaque and never expire here.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
