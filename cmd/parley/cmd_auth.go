package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/model"
)

// LoginCmd logs a user in
type LoginCmd struct {
	Name             string `help:"Display name"`
	Email            string `help:"Email address"`
	Avatar           string `help:"Avatar URL (generated from the name when empty)"`
	GoogleCredential string `name:"google-credential" env:"GOOGLE_CREDENTIAL" help:"Google ID token to take the profile from"`
}

// Run executes the login command
func (c *LoginCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	var u model.User
	if c.GoogleCredential != "" {
		u, err = s.Identity.LoginWithGoogleCredential(c.GoogleCredential)
	} else {
		u, err = s.Identity.Login(model.User{Name: c.Name, Email: c.Email, Avatar: c.Avatar})
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// Conversations belong to the user, so reload them for the new identity.
	s.source = s.Conversations.Load(s.ctx)
	fmt.Fprintf(ctx.Stdout, "Logged in as %s (%s)\n", u.Name, u.ID)
	return nil
}

// LogoutCmd logs the current user out
type LogoutCmd struct{}

// Run executes the logout command
func (c *LogoutCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.Identity.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Fprintln(ctx.Stdout, "Logged out")
	return nil
}

// WhoamiCmd shows the current user
type WhoamiCmd struct{}

// Run executes the whoami command
func (c *WhoamiCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	u, err := s.requireUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "ID:     %s\n", u.ID)
	fmt.Fprintf(ctx.Stdout, "Name:   %s\n", u.Name)
	if u.Email != "" {
		fmt.Fprintf(ctx.Stdout, "Email:  %s\n", u.Email)
	}
	fmt.Fprintf(ctx.Stdout, "Avatar: %s\n", u.Avatar)
	fmt.Fprintf(ctx.Stdout, "Conversations loaded from %s\n", s.source)
	return nil
}
