// Package users covers the account endpoints of the signed-in user.
package users

import (
	"context"

	"expensetracker/internal/apiclient"
	"expensetracker/internal/core"
)

// Requester is the subset of *apiclient.Client the service needs.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service manages the signed-in user's account.
type Service struct {
	api Requester
}

// NewService creates a service over api.
func NewService(api Requester) *Service {
	return &Service{api: api}
}

// Profile returns the signed-in user's profile.
func (s *Service) Profile(ctx context.Context) (core.Profile, error) {
	var out core.Profile
	err := s.do(ctx, "GET", "/user/profile", nil, &out)
	return out, err
}

// UpdateProfile sends the editable profile fields and returns the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	body := profileUpdate{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Username:  p.Username,
	}
	var out core.Profile
	err := s.do(ctx, "PUT", "/user/profile", body, &out)
	return out, err
}

// UpdatePassword sends the current and new password; ConfirmPassword stays local.
func (s *Service) UpdatePassword(ctx context.Context, change core.PasswordChange) error {
	return s.do(ctx, "PUT", "/user/password", change, nil)
}

// DeleteAccount removes the account and all its expenses on the server.
func (s *Service) DeleteAccount(ctx context.Context) error {
	return s.do(ctx, "DELETE", "/user/account", nil, nil)
}

type profileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

func (s *Service) do(ctx context.Context, method, path string, body, out any) error {
	if err := s.api.Do(ctx, method, path, body, out); err != nil {
		return apiclient.Normalize(err)
	}
	return nil
}
