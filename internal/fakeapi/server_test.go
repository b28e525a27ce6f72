package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer() *Server {
	return New(Config{
		JWTSecret: "test-secret-123",
		TokenTTL:  time.Hour,
		HashCost:  4,
		Now:       func() time.Time { return testNow },
	}, nil)
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func registerUser(t *testing.T, s *Server, username string) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/register", "", core.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[core.AuthResponse](t, rec).Token
}

func addExpense(t *testing.T, s *Server, token, title, amount string, cat core.Category, date core.Date) core.Expense {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/expenses", token, core.ExpenseInput{
		Title:       title,
		Amount:      decimal.RequireFromString(amount),
		Category:    cat,
		ExpenseDate: date,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[core.Expense](t, rec)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, http.MethodPost, "/auth/register", "", core.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	auth := decode[core.AuthResponse](t, rec)
	assert.Equal(t, "ana", auth.Username)
	assert.Equal(t, int64(1), auth.ID)
	assert.NotEmpty(t, auth.Token)

	t.Run("duplicate username", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/register", "", core.RegisterRequest{Username: "ANA", Email: "other@example.com", Password: "secret123"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username already exists!", errorOf(t, rec))
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/register", "", core.RegisterRequest{Username: "bob", Email: "ana@example.com", Password: "secret123"})
		assert.Equal(t, "Email already exists!", errorOf(t, rec))
	})

	t.Run("login by email", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/login", "", core.LoginRequest{UsernameOrEmail: "ana@example.com", Password: "secret123"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ana", decode[core.AuthResponse](t, rec).Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/login", "", core.LoginRequest{UsernameOrEmail: "ana", Password: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid username/email or password", errorOf(t, rec))
	})

	t.Run("validate", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/validate", auth.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, "ana", body["username"])

		rec = do(t, s, http.MethodPost, "/auth/validate", "garbage", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Token validation failed", errorOf(t, rec))
	})

	t.Run("availability", func(t *testing.T) {
		assert.False(t, decode[core.Availability](t, do(t, s, http.MethodGet, "/auth/check-username/ana", "", nil)).Available)
		assert.True(t, decode[core.Availability](t, do(t, s, http.MethodGet, "/auth/check-username/zoe", "", nil)).Available)
		assert.False(t, decode[core.Availability](t, do(t, s, http.MethodGet, "/auth/check-email/ana@example.com", "", nil)).Available)
	})
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer()
	registerUser(t, s, "ana")

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}})
	forged, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(-time.Minute)),
	}})
	stale, err := expired.SignedString([]byte("test-secret-123"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"forged signature", forged},
		{"expired", stale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/expenses", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", errorOf(t, rec))
		})
	}
}

func TestExpenses(t *testing.T) {
	s := newTestServer()
	token := registerUser(t, s, "ana")

	first := addExpense(t, s, token, "Lunch", "1", core.Food, core.NewDate(2025, 3, 1))
	addExpense(t, s, token, "Bus", "2", core.Transportation, core.NewDate(2025, 3, 10))
	addExpense(t, s, token, "Dinner", "2", core.Food, core.NewDate(2025, 2, 20))

	t.Run("list newest first", func(t *testing.T) {
		list := decode[[]core.Expense](t, do(t, s, http.MethodGet, "/expenses", token, nil))
		require.Len(t, list, 3)
		assert.Equal(t, []string{"Bus", "Lunch", "Dinner"}, []string{list[0].Title, list[1].Title, list[2].Title})
		assert.False(t, list[0].CreatedAt.IsZero())
	})

	t.Run("current month", func(t *testing.T) {
		list := decode[[]core.Expense](t, do(t, s, http.MethodGet, "/expenses/current-month", token, nil))
		assert.Len(t, list, 2)
	})

	t.Run("statistics", func(t *testing.T) {
		stats := decode[core.Statistics](t, do(t, s, http.MethodGet, "/expenses/statistics", token, nil))
		assert.Equal(t, "5", stats.TotalExpenses.String())
		assert.Equal(t, "3", stats.CurrentMonthTotal.String())
		assert.Equal(t, int64(3), stats.TotalCount)
		assert.Equal(t, "1.67", stats.AverageExpense.String())
	})

	t.Run("charts", func(t *testing.T) {
		cats := decode[core.CategoryTotals](t, do(t, s, http.MethodGet, "/expenses/chart/category", token, nil))
		assert.Len(t, cats, 2)
		assert.Equal(t, "3", cats[core.Food].String())

		months := decode[core.MonthlyTotals](t, do(t, s, http.MethodGet, "/expenses/chart/monthly", token, nil))
		assert.Equal(t, "3", months["2025-03"].String())
		assert.Equal(t, "2", months["2025-02"].String())
	})

	t.Run("update", func(t *testing.T) {
		in := first.Input()
		in.Title = "Brunch"
		rec := do(t, s, http.MethodPut, "/expenses/1", token, in)
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decode[core.Expense](t, rec)
		assert.Equal(t, "Brunch", updated.Title)
		assert.True(t, updated.CreatedAt.Equal(first.CreatedAt.Time))
	})

	t.Run("validation", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/expenses", token, core.ExpenseInput{Title: " ", Amount: decimal.NewFromInt(1), ExpenseDate: core.NewDate(2025, 3, 1)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Title is required", errorOf(t, rec))
	})

	t.Run("missing expense", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/expenses/99", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = do(t, s, http.MethodDelete, "/expenses/99", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Expense not found or access denied!", errorOf(t, rec))
	})

	t.Run("other users cannot see it", func(t *testing.T) {
		bob := registerUser(t, s, "bob")
		assert.Empty(t, decode[[]core.Expense](t, do(t, s, http.MethodGet, "/expenses", bob, nil)))
		rec := do(t, s, http.MethodDelete, "/expenses/1", bob, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/expenses/1", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Expense deleted successfully", decode[map[string]string](t, rec)["message"])
		assert.Len(t, decode[[]core.Expense](t, do(t, s, http.MethodGet, "/expenses", token, nil)), 2)
	})
}

func TestStatistics_Empty(t *testing.T) {
	stats := computeStatistics(nil, testNow)
	assert.True(t, stats.TotalExpenses.IsZero())
	assert.True(t, stats.AverageExpense.IsZero())
	assert.Equal(t, int64(0), stats.TotalCount)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer()
	token := registerUser(t, s, "ana")
	registerUser(t, s, "bob")

	profile := decode[core.Profile](t, do(t, s, http.MethodGet, "/user/profile", token, nil))
	assert.Equal(t, "ana@example.com", profile.Email)

	rec := do(t, s, http.MethodPut, "/user/profile", token, core.Profile{Username: "ana", Email: "bob@example.com"})
	assert.Equal(t, "Email already exists!", errorOf(t, rec))

	rec = do(t, s, http.MethodPut, "/user/profile", token, core.Profile{Username: "ana", Email: "ana@example.com", FirstName: "Ana"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode[core.Profile](t, rec).FirstName)

	rec = do(t, s, http.MethodPut, "/user/password", token, map[string]string{"currentPassword": "wrong", "newPassword": "newsecret"})
	assert.Equal(t, "Current password is incorrect!", errorOf(t, rec))

	rec = do(t, s, http.MethodPut, "/user/password", token, map[string]string{"newPassword": "newsecret"})
	assert.Equal(t, "Current password and new password are required", errorOf(t, rec))

	rec = do(t, s, http.MethodPut, "/user/password", token, map[string]string{"currentPassword": "secret123", "newPassword": "newsecret"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodPost, "/auth/login", "", core.LoginRequest{UsernameOrEmail: "ana", Password: "newsecret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/user/account", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
