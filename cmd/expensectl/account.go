package main

import (
	"context"
	"flag"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/present"
)

func runProfile(ctx context.Context, e *env, _ []string) error {
	p, err := e.app.Users.Profile(ctx)
	if err != nil {
		return err
	}
	rows := [][2]string{
		{"Username", p.Username},
		{"Email", p.Email},
		{"First name", p.FirstName},
		{"Last name", p.LastName},
		{"Member since", present.FormatTimestamp(p.CreatedAt)},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(e.stdout, "%-13s %s\n", row[0]+":", row[1])
	}
	return nil
}

func runUpdateProfile(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("update-profile", e)
	username := fs.String("username", "", "New username")
	email := fs.String("email", "", "New email")
	firstName := fs.String("first", "", "First name")
	lastName := fs.String("last", "", "Last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NFlag() == 0 {
		return fmt.Errorf("nothing to change: pass at least one of -username, -email, -first, -last")
	}

	p, err := e.app.Users.Profile(ctx)
	if err != nil {
		return err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "username":
			p.Username = *username
		case "email":
			p.Email = *email
		case "first":
			p.FirstName = *firstName
		case "last":
			p.LastName = *lastName
		}
	})
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := e.app.Users.UpdateProfile(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert("Profile updated successfully"))
	return nil
}

func runPassword(ctx context.Context, e *env, _ []string) error {
	var change core.PasswordChange
	var err error
	if change.CurrentPassword, err = e.readPassword("Current password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if change.NewPassword, err = e.readPassword("New password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if change.ConfirmPassword, err = e.readPassword("Confirm new password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := change.Validate(); err != nil {
		return err
	}

	if err := e.app.Users.UpdatePassword(ctx, change); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert("Password updated successfully"))
	return nil
}

func runDeleteAccount(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("delete-account", e)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		ok, err := e.confirm("Are you sure you want to delete your account? This cannot be undone.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.stdout, "Cancelled")
			return nil
		}
	}

	if err := e.app.Users.DeleteAccount(ctx); err != nil {
		return err
	}
	if err := e.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert("Account deleted successfully"))
	return nil
}
