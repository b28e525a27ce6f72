package fakeapi_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/analytics"
	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
	"expensetracker/internal/expenses"
	"expensetracker/internal/fakeapi"
	"expensetracker/internal/session"
	"expensetracker/internal/users"
	"expensetracker/internal/viewstate"
)

type stack struct {
	client   *apiclient.Client
	session  *session.Store
	repo     *expenses.Repository
	users    *users.Service
	controls *viewstate.Controller
}

func newStack(t *testing.T, creds session.CredentialStore) stack {
	t.Helper()
	srv := httptest.NewServer(fakeapi.New(fakeapi.Config{JWTSecret: "integration-secret", HashCost: 4}, nil).Handler())
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL+"/api", apiclient.WithTimeout(5*time.Second))
	sess := session.New(client, creds, nil)
	client.SetTokenSource(sess)
	repo := expenses.NewRepository(client)
	return stack{
		client:   client,
		session:  sess,
		repo:     repo,
		users:    users.NewService(client),
		controls: viewstate.New(repo),
	}
}

func input(title, amount string, cat core.Category, date core.Date) core.ExpenseInput {
	return core.ExpenseInput{Title: title, Amount: decimal.RequireFromString(amount), Category: cat, ExpenseDate: date}
}

func TestClientStackAgainstFakeAPI(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, session.NewMemoryStore())
	today := core.DateOf(time.Now())

	t.Run("anonymous requests are rejected", func(t *testing.T) {
		err := s.controls.LoadExpenses(ctx)
		require.Error(t, err)
		assert.Equal(t, "Unauthorized", s.controls.Snapshot().LastError)
		s.controls.ClearError()
	})

	user, err := s.session.Register(ctx, core.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, session.Authenticated, s.session.State())

	available, err := s.session.CheckUsername(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, available)

	t.Run("writes refetch the list and statistics", func(t *testing.T) {
		_, err := s.controls.AddExpense(ctx, input("Coffee", "5.50", core.Food, today))
		require.NoError(t, err)
		gas, err := s.controls.AddExpense(ctx, input("Gas", "45.00", core.Transportation, today))
		require.NoError(t, err)

		snap := s.controls.Snapshot()
		assert.Len(t, snap.Expenses, 2)
		assert.Equal(t, viewstate.MsgAdded, snap.LastSuccess)
		require.NotNil(t, snap.Statistics)
		assert.Equal(t, "50.5", snap.Statistics.TotalExpenses.String())
		assert.Equal(t, "25.25", snap.Statistics.AverageExpense.String())

		s.controls.SetFilter(core.FilterFor(core.Food))
		view := s.controls.DerivedView()
		require.Len(t, view, 1)
		assert.Equal(t, "Coffee", view[0].Title)

		in := gas.Input()
		in.Amount = decimal.RequireFromString("40")
		_, err = s.controls.EditExpense(ctx, gas.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "45.5", s.controls.Snapshot().Statistics.TotalExpenses.String())

		require.NoError(t, s.controls.RemoveExpense(ctx, gas.ID))
		snap = s.controls.Snapshot()
		assert.Len(t, snap.Expenses, 1)
		assert.Equal(t, viewstate.MsgDeleted, snap.LastSuccess)
	})

	t.Run("server error text reaches the user", func(t *testing.T) {
		err := s.controls.RemoveExpense(ctx, 999)
		require.Error(t, err)
		assert.Equal(t, "Expense not found or access denied!", s.controls.Snapshot().LastError)

		_, err = s.repo.GetByID(ctx, 999)
		var apiErr *apiclient.Error
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.NotFound())
		assert.Equal(t, "Request failed with status code 404", apiErr.Message)
	})

	t.Run("analytics", func(t *testing.T) {
		report := analytics.NewLoader(s.repo, 0, nil).Load(ctx)
		assert.True(t, report.Complete())
		assert.Equal(t, "5.5", report.Categories[core.Food].String())
		assert.Equal(t, "5.5", report.Monthly[today.MonthKey()].String())
	})

	t.Run("current month", func(t *testing.T) {
		list, err := s.repo.CurrentMonth(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("profile", func(t *testing.T) {
		p, err := s.users.Profile(ctx)
		require.NoError(t, err)
		p.FirstName = "Ana"
		p, err = s.users.UpdateProfile(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Ana", p.FirstName)

		err = s.users.UpdatePassword(ctx, core.PasswordChange{CurrentPassword: "wrong", NewPassword: "newsecret"})
		assert.EqualError(t, err, "Current password is incorrect!")
	})

	require.NoError(t, s.session.ValidateToken(ctx))
	require.NoError(t, s.session.Logout(ctx))
	assert.Empty(t, s.session.Token())

	_, err = s.repo.ListAll(ctx)
	assert.EqualError(t, err, "Unauthorized")

	_, err = s.session.Login(ctx, core.LoginRequest{UsernameOrEmail: "ana", Password: "bad"})
	assert.EqualError(t, err, "Invalid username/email or password")
	assert.Equal(t, session.Anonymous, s.session.State())
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	creds := session.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	s := newStack(t, creds)

	_, err := s.session.Register(ctx, core.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)

	restored := session.New(s.client, creds, nil)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, session.Authenticated, restored.State())
	assert.Equal(t, s.session.Token(), restored.Token())

	s.client.SetTokenSource(restored)
	require.NoError(t, restored.ValidateToken(ctx))

	require.NoError(t, s.users.DeleteAccount(ctx))
	assert.Error(t, restored.ValidateToken(ctx))
	assert.Equal(t, session.Anonymous, restored.State())

	_, err = creds.Load(ctx)
	assert.ErrorIs(t, err, core.ErrNoSession)
}
