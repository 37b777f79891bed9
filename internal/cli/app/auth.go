package app

import (
	"context"
	"fmt"
	"time"
)

func runLogin(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("login")
	username := fs.String("u", "", "username (prompted when empty)")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	if *username == "" {
		u, err := app.prompt("Username: ")
		if err != nil {
			return err
		}
		*username = u
	}
	password, err := app.promptPassword("Password: ")
	if err != nil {
		return err
	}

	if _, err := app.client.Auth.Login(ctx, *username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.logger.Info("logged in", "username", *username, "base_url", app.cfg.BaseURL)
	fmt.Fprintf(app.io.Out, "Logged in as %s\n", *username)
	return nil
}

func runLogout(ctx context.Context, app *Application, args []string) error {
	if err := app.parse(app.flags("logout"), args); err != nil {
		return err
	}
	if err := app.client.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.io.Out, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("whoami")
	all := fs.Bool("all", false, "list every saved login without contacting the backend")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	if *all {
		entries, err := app.store.List(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(app.io.Out, "No saved logins")
			return nil
		}
		return app.printLogins(entries)
	}

	if _, ok := app.session.Credential(); !ok {
		fmt.Fprintln(app.io.Out, "Not logged in")
		return nil
	}

	user, err := app.client.Users.GetByUsername(ctx, app.session.Username())
	if err != nil {
		return err
	}
	app.printUser(user)

	// The lookup may have refreshed the token.
	cred, _ := app.session.Credential()
	if !cred.ExpiresAt.IsZero() {
		fmt.Fprintf(app.io.Out, "Expires:  %s\n", cred.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}
