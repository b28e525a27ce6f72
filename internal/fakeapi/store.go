package fakeapi

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
)

var (
	errUsernameTaken   = errors.New("Username already exists!")
	errEmailTaken      = errors.New("Email already exists!")
	errUserNotFound    = errors.New("User not found!")
	errExpenseNotFound = errors.New("Expense not found or access denied!")
)

type account struct {
	profile core.Profile
	hash    []byte
}

// store holds users and their expenses in memory. Expenses are only ever
// reachable through the owning user's id.
type store struct {
	mu          sync.RWMutex
	users       map[int64]*account
	expenses    map[int64]map[int64]core.Expense
	nextUser    int64
	nextExpense int64
}

func newStore() *store {
	return &store{
		users:    make(map[int64]*account),
		expenses: make(map[int64]map[int64]core.Expense),
	}
}

func (s *store) createUser(p core.Profile, hash []byte) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(func(a *account) bool { return strings.EqualFold(a.profile.Username, p.Username) }) != nil {
		return core.Profile{}, errUsernameTaken
	}
	if s.findLocked(func(a *account) bool { return strings.EqualFold(a.profile.Email, p.Email) }) != nil {
		return core.Profile{}, errEmailTaken
	}
	s.nextUser++
	p.ID = s.nextUser
	s.users[p.ID] = &account{profile: p, hash: hash}
	s.expenses[p.ID] = make(map[int64]core.Expense)
	return p, nil
}

// lookup matches a login name against usernames and emails.
func (s *store) lookup(usernameOrEmail string) (core.Profile, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.findLocked(func(a *account) bool {
		return strings.EqualFold(a.profile.Username, usernameOrEmail) || strings.EqualFold(a.profile.Email, usernameOrEmail)
	})
	if a == nil {
		return core.Profile{}, nil, false
	}
	return a.profile, a.hash, true
}

func (s *store) userByID(id int64) (core.Profile, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users[id]
	if !ok {
		return core.Profile{}, nil, false
	}
	return a.profile, a.hash, true
}

func (s *store) usernameAvailable(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(func(a *account) bool { return strings.EqualFold(a.profile.Username, username) }) == nil
}

func (s *store) emailAvailable(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(func(a *account) bool { return strings.EqualFold(a.profile.Email, email) }) == nil
}

func (s *store) updateProfile(id int64, upd core.Profile) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return core.Profile{}, errUserNotFound
	}
	if upd.Email != "" && !strings.EqualFold(upd.Email, a.profile.Email) {
		if s.findLocked(func(o *account) bool { return strings.EqualFold(o.profile.Email, upd.Email) }) != nil {
			return core.Profile{}, errEmailTaken
		}
		a.profile.Email = upd.Email
	}
	if upd.Username != "" && !strings.EqualFold(upd.Username, a.profile.Username) {
		if s.findLocked(func(o *account) bool { return strings.EqualFold(o.profile.Username, upd.Username) }) != nil {
			return core.Profile{}, errUsernameTaken
		}
		a.profile.Username = upd.Username
	}
	a.profile.FirstName = upd.FirstName
	a.profile.LastName = upd.LastName
	return a.profile, nil
}

func (s *store) setPassword(id int64, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return errUserNotFound
	}
	a.hash = hash
	return nil
}

func (s *store) deleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errUserNotFound
	}
	delete(s.users, id)
	delete(s.expenses, id)
	return nil
}

func (s *store) findLocked(match func(*account) bool) *account {
	for _, a := range s.users {
		if match(a) {
			return a
		}
	}
	return nil
}

// listExpenses returns the user's expenses newest expense date first.
func (s *store) listExpenses(userID int64) []core.Expense {
	s.mu.RLock()
	out := make([]core.Expense, 0, len(s.expenses[userID]))
	for _, e := range s.expenses[userID] {
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := b.ExpenseDate.Compare(a.ExpenseDate.Time); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (s *store) expense(userID, id int64) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[userID][id]
	return e, ok
}

func (s *store) createExpense(userID int64, in core.ExpenseInput, now time.Time) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.expenses[userID]
	if !ok {
		return core.Expense{}, errUserNotFound
	}
	s.nextExpense++
	e := core.Expense{
		ID:          s.nextExpense,
		Title:       in.Title,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		ExpenseDate: in.ExpenseDate,
		CreatedAt:   core.Timestamp{Time: now},
		UpdatedAt:   core.Timestamp{Time: now},
	}
	owned[e.ID] = e
	return e, nil
}

func (s *store) updateExpense(userID, id int64, in core.ExpenseInput, now time.Time) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[userID][id]
	if !ok {
		return core.Expense{}, errExpenseNotFound
	}
	e.Title = in.Title
	e.Description = in.Description
	e.Amount = in.Amount
	e.Category = in.Category
	e.ExpenseDate = in.ExpenseDate
	e.UpdatedAt = core.Timestamp{Time: now}
	s.expenses[userID][id] = e
	return e, nil
}

func (s *store) deleteExpense(userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[userID][id]; !ok {
		return errExpenseNotFound
	}
	delete(s.expenses[userID], id)
	return nil
}
