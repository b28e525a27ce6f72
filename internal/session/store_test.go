package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
)

type route func(body any) (string, error)

type stubAPI struct {
	mu     sync.Mutex
	routes map[string]route
	seen   []string
}

func newStubAPI() *stubAPI { return &stubAPI{routes: map[string]route{}} }

func (s *stubAPI) on(method, path string, r route) { s.routes[method+" "+path] = r }

func (s *stubAPI) Do(ctx context.Context, method, path string, body, out any) error {
	s.mu.Lock()
	s.seen = append(s.seen, method+" "+path)
	r, ok := s.routes[method+" "+path]
	s.mu.Unlock()
	if !ok {
		return &apiclient.Error{Message: "Request failed with status code 404", StatusCode: 404}
	}
	reply, err := r(body)
	if err != nil {
		return err
	}
	if out != nil && reply != "" {
		return json.Unmarshal([]byte(reply), out)
	}
	return nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

const authReply = `{"token":"tok-abc","type":"Bearer","id":7,"username":"ana","email":"ana@example.com"}`

func TestStore_LoginPersistsAndAuthenticates(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/login", func(body any) (string, error) {
		req := body.(core.LoginRequest)
		assert.Equal(t, "ana", req.UsernameOrEmail)
		return authReply, nil
	})
	creds := NewMemoryStore()
	s := New(api, creds, nil)

	var states []State
	unsubscribe := s.Subscribe(func(snap Snapshot) { states = append(states, snap.State) })
	defer unsubscribe()

	user, err := s.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "ana", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, "tok-abc", s.Token())
	assert.Equal(t, []State{Authenticating, Authenticated}, states)

	saved, err := creds.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", saved.Token)
	assert.Equal(t, "ana", saved.User.Username)
}

func TestStore_LoginFailureReturnsToAnonymous(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/login", func(any) (string, error) {
		return "", &apiclient.Error{Message: "Invalid username or password", StatusCode: 401}
	})
	creds := NewMemoryStore()
	s := New(api, creds, nil)

	_, err := s.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "ana", Password: "bad"})
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid username or password", apiErr.Message)
	assert.Equal(t, Anonymous, s.State())
	assert.Empty(t, s.Token())

	_, err = creds.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrNoSession)
}

func TestStore_Register(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/register", func(body any) (string, error) {
		req := body.(core.RegisterRequest)
		assert.Equal(t, "ana@example.com", req.Email)
		return authReply, nil
	})
	s := New(api, nil, nil)

	_, err := s.Register(context.Background(), core.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, Authenticated, s.State())
}

func TestStore_ValidateFailureIsTerminal(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/validate", func(any) (string, error) {
		return "", &apiclient.Error{Message: "Invalid token", StatusCode: 401}
	})
	creds := NewMemoryStore()
	require.NoError(t, creds.Save(context.Background(), core.Session{Token: "opaque", User: core.User{ID: 1, Username: "ana"}}))

	s := New(api, creds, nil)
	require.NoError(t, s.Restore(context.Background()))
	require.Equal(t, Authenticated, s.State())

	err := s.ValidateToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Invalid token", apiclient.Message(err))
	assert.Equal(t, Anonymous, s.State())
	_, err = creds.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrNoSession)

	// No retry: exactly one validation call was made.
	count := 0
	for _, c := range api.seen {
		if c == "POST /auth/validate" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestStore_ValidateInvalidFlag(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/validate", func(any) (string, error) { return `{"valid":false}`, nil })
	creds := NewMemoryStore()
	require.NoError(t, creds.Save(context.Background(), core.Session{Token: "opaque", User: core.User{ID: 1}}))

	s := New(api, creds, nil)
	require.NoError(t, s.Restore(context.Background()))
	require.Error(t, s.ValidateToken(context.Background()))
	assert.Equal(t, Anonymous, s.State())
}

func TestStore_ValidateSuccessRefreshesIdentity(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/validate", func(any) (string, error) {
		return `{"valid":true,"id":1,"username":"ana","email":"new@example.com"}`, nil
	})
	creds := NewMemoryStore()
	require.NoError(t, creds.Save(context.Background(), core.Session{Token: "opaque", User: core.User{ID: 1, Username: "ana", Email: "old@example.com"}}))

	s := New(api, creds, nil)
	require.NoError(t, s.Restore(context.Background()))
	require.NoError(t, s.ValidateToken(context.Background()))

	user, ok := s.User()
	assert.True(t, ok)
	assert.Equal(t, "new@example.com", user.Email)
	saved, _ := creds.Load(context.Background())
	assert.Equal(t, "new@example.com", saved.User.Email)
}

func TestStore_ValidateWithoutToken(t *testing.T) {
	s := New(newStubAPI(), nil, nil)
	err := s.ValidateToken(context.Background())
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.Equal(t, Anonymous, s.State())
}

func TestStore_RestoreDropsExpiredJWT(t *testing.T) {
	creds := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, core.Session{Token: signed(t, time.Now().Add(-time.Hour)), User: core.User{ID: 1}}))

	s := New(newStubAPI(), creds, nil)
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, Anonymous, s.State())
	_, err := creds.Load(ctx)
	assert.ErrorIs(t, err, core.ErrNoSession)

	require.NoError(t, creds.Save(ctx, core.Session{Token: signed(t, time.Now().Add(time.Hour)), User: core.User{ID: 1}}))
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, Authenticated, s.State())
}

func TestStore_RestoreClearsCorruptCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	creds := NewFileStore(path)
	ctx := context.Background()

	api := newStubAPI()
	api.on("POST", "/auth/login", func(any) (string, error) { return authReply, nil })
	s := New(api, creds, nil)
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, Anonymous, s.State())

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "corrupt credentials must be removed")

	// Signing in works again without touching the file by hand.
	_, err = s.Login(ctx, core.LoginRequest{UsernameOrEmail: "ana", Password: "secret"})
	require.NoError(t, err)
	saved, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", saved.Token)
}

func TestStore_LogoutClears(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/login", func(any) (string, error) { return authReply, nil })
	creds := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))
	s := New(api, creds, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, core.LoginRequest{UsernameOrEmail: "ana", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, Anonymous, s.State())
	assert.Empty(t, s.Token())
	_, err = creds.Load(ctx)
	assert.ErrorIs(t, err, core.ErrNoSession)
}

func TestStore_Availability(t *testing.T) {
	api := newStubAPI()
	api.on("GET", "/auth/check-username/ana", func(any) (string, error) { return `{"available":false}`, nil })
	api.on("GET", "/auth/check-email/a@b.c", func(any) (string, error) { return `{"available":true}`, nil })
	s := New(api, nil, nil)

	ok, err := s.CheckUsername(context.Background(), "ana")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Unsubscribe(t *testing.T) {
	api := newStubAPI()
	api.on("POST", "/auth/login", func(any) (string, error) { return authReply, nil })
	s := New(api, nil, nil)

	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	unsubscribe()
	unsubscribe()

	_, err := s.Login(context.Background(), core.LoginRequest{UsernameOrEmail: "ana", Password: "secret"})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
