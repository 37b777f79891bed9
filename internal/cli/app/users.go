package app

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/inventory/pkg/cryptox"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
)

func runUsersGet(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("users get")
	username := fs.String("username", "", "username")
	id := fs.Uint("id", 0, "user id")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	var (
		user *inventory.User
		err  error
	)
	switch {
	case *username != "":
		user, err = app.client.Users.GetByUsername(ctx, *username)
	case *id != 0:
		user, err = app.client.Users.Get(ctx, *id)
	default:
		fmt.Fprintln(app.io.Err, "one of -username or -id is required")
		fs.Usage()
		return ErrUsage
	}
	if err != nil {
		return err
	}

	app.printUser(user)
	return nil
}

func runUsersList(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("users list")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	list, err := app.client.Users.List(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return app.printJSON(list)
	}
	return app.printUsers(list.Data)
}

func runUsersCreate(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("users create")
	var req inventory.CreateUserRequest
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.Role, "role", "user", "role (admin, user)")
	fs.StringVar(&req.Password, "password", "", "initial password (generated when empty)")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "username", "email"); err != nil {
		return err
	}

	generated := req.Password == ""
	if generated {
		pw, err := cryptox.GeneratePassword()
		if err != nil {
			return err
		}
		req.Password = pw
	}

	user, err := app.client.Users.Create(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.io.Out, "Created user %d (%s)\n", user.ID, user.Username)
	if generated {
		fmt.Fprintf(app.io.Out, "Initial password: %s\n", req.Password)
	}
	return nil
}

func runUsersUpdate(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("users update")
	id := fs.Uint("id", 0, "user id")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", "", "role (admin, user)")
	password := fs.String("password", "", "new password")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "id"); err != nil {
		return err
	}

	req := inventory.UpdateUserRequest{
		FullName: ifSet(fs, "name", *name),
		Email:    ifSet(fs, "email", *email),
		Phone:    ifSet(fs, "phone", *phone),
		Role:     ifSet(fs, "role", *role),
		Password: ifSet(fs, "password", *password),
	}
	user, err := app.client.Users.Update(ctx, *id, req)
	if err != nil {
		return err
	}

	app.printUser(user)
	return nil
}

func runUsersDelete(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("users delete")
	id := fs.Uint("id", 0, "user id")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "id"); err != nil {
		return err
	}

	if err := app.client.Users.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Deleted user %d\n", *id)
	return nil
}
