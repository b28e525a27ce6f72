package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/present"
	"expensetracker/internal/session"
)

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("register", e)
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	firstName := fs.String("first", "", "First name")
	lastName := fs.String("last", "", "Last name")
	password := fs.String("password", "", "Password (prompted if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := core.RegisterRequest{
		Username:  strings.TrimSpace(*username),
		Email:     strings.TrimSpace(*email),
		Password:  *password,
		FirstName: *firstName,
		LastName:  *lastName,
	}
	if req.Password == "" {
		pw, err := e.readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		req.Password = pw
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := e.app.Session.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert("Registered and signed in as "+user.Username))
	return nil
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("login", e)
	user := fs.String("user", "", "Username or email (prompted if omitted)")
	password := fs.String("password", "", "Password (prompted if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := core.LoginRequest{UsernameOrEmail: strings.TrimSpace(*user), Password: *password}
	if req.UsernameOrEmail == "" {
		name, err := e.readLine("Username or email: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		req.UsernameOrEmail = name
	}
	if req.Password == "" {
		pw, err := e.readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		req.Password = pw
	}
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := e.app.Session.Login(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert("Signed in as "+u.Username))
	return nil
}

func runLogout(ctx context.Context, e *env, _ []string) error {
	if err := e.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "Signed out")
	return nil
}

func runWhoami(_ context.Context, e *env, _ []string) error {
	u, ok := e.app.Session.User()
	if !ok {
		fmt.Fprintln(e.stdout, "Not signed in")
		return nil
	}
	fmt.Fprintf(e.stdout, "%s <%s> (id %d)\n", u.Username, u.Email, u.ID)
	return nil
}

func runValidate(ctx context.Context, e *env, _ []string) error {
	if err := e.app.Session.ValidateToken(ctx); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return errNotSignedIn
		}
		return fmt.Errorf("session ended: %w", err)
	}
	fmt.Fprintln(e.stdout, "Token is valid")
	return nil
}

func runCheckUsername(ctx context.Context, e *env, args []string) error {
	return checkAvailability(ctx, e, args, "username", e.app.Session.CheckUsername)
}

func runCheckEmail(ctx context.Context, e *env, args []string) error {
	return checkAvailability(ctx, e, args, "email", e.app.Session.CheckEmail)
}

func checkAvailability(ctx context.Context, e *env, args []string, what string, check func(context.Context, string) (bool, error)) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("usage: check-%s <%s>", what, what)
	}
	available, err := check(ctx, args[0])
	if err != nil {
		return err
	}
	if available {
		fmt.Fprintf(e.stdout, "%s is available\n", args[0])
	} else {
		fmt.Fprintf(e.stdout, "%s is taken\n", args[0])
	}
	return nil
}
