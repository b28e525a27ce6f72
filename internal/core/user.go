package core

import (
	"errors"
	"strings"
	"time"
)

const minPasswordLength = 6

type (
	// User is the identity snapshot persisted next to the bearer token.
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}

	// Profile is the editable account record behind /user/profile.
	Profile struct {
		ID        int64     `json:"id,omitempty"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		CreatedAt Timestamp `json:"createdAt"`
	}

	// Session pairs the authenticated identity with its opaque credential.
	Session struct {
		User  User
		Token string
	}

	// AuthResponse is returned by /auth/login and /auth/register.
	AuthResponse struct {
		Token    string `json:"token"`
		Type     string `json:"type,omitempty"`
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}

	// LoginRequest is sent to /auth/login.
	LoginRequest struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}

	// RegisterRequest is sent to /auth/register.
	RegisterRequest struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
	}

	// PasswordChange is sent to /user/password. ConfirmPassword stays local.
	PasswordChange struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"-"`
	}

	// Availability is the answer of the username and email probes.
	Availability struct {
		Available bool `json:"available"`
	}

	// MutationKind names the write that changed the expense collection.
	MutationKind string

	// MutationEvent describes a successful create, update or delete.
	MutationEvent struct {
		Kind      MutationKind `json:"kind"`
		ExpenseID int64        `json:"expenseId"`
		At        time.Time    `json:"at"`
	}
)

const (
	MutationCreated MutationKind = "created"
	MutationUpdated MutationKind = "updated"
	MutationDeleted MutationKind = "deleted"
)

var (
	ErrCurrentPasswordRequired = errors.New("Current password is required")
	ErrNewPasswordRequired     = errors.New("New password is required")
	ErrPasswordTooShort        = errors.New("New password must be at least 6 characters")
	ErrPasswordMismatch        = errors.New("New passwords do not match")
	ErrEmailRequired           = errors.New("Email is required")
	ErrUsernameRequired        = errors.New("Username is required")
	ErrPasswordRequired        = errors.New("Password is required")

	// ErrNoSession is returned by credential stores that hold nothing.
	ErrNoSession = errors.New("no stored session")
)

// User extracts the identity snapshot from an auth response.
func (r AuthResponse) User() User {
	return User{ID: r.ID, Username: r.Username, Email: r.Email}
}

func (l LoginRequest) Validate() error {
	if strings.TrimSpace(l.UsernameOrEmail) == "" {
		return ErrUsernameRequired
	}
	if l.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Validate applies the registration form rules.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrUsernameRequired
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrEmailRequired
	}
	if len(r.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmailRequired
	}
	if strings.TrimSpace(p.Username) == "" {
		return ErrUsernameRequired
	}
	return nil
}

// Validate checks the password form before anything is sent.
func (p PasswordChange) Validate() error {
	switch {
	case p.CurrentPassword == "":
		return ErrCurrentPasswordRequired
	case p.NewPassword == "":
		return ErrNewPasswordRequired
	case len(p.NewPassword) < minPasswordLength:
		return ErrPasswordTooShort
	case p.ConfirmPassword != p.NewPassword:
		return ErrPasswordMismatch
	}
	return nil
}

// NewMutationEvent stamps an event with the current time.
func NewMutationEvent(kind MutationKind, id int64) MutationEvent {
	return MutationEvent{Kind: kind, ExpenseID: id, At: time.Now().UTC()}
}
