package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/aicanvas/core/user"
)

// addUser creates a user.User, or updates the name of an existing one. The role of an existing user is kept.
func (cli *commandLine) addUser(email, role, name string) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{Email: email, Role: role, Name: name})
		if err != nil {
			return err
		}
		fmt.Printf("created %s %s (%s)\n", usr.Role, usr.Email, usr.ID)
		return nil
	}

	if name != "" {
		if usr, err = cli.usrSvc.SetName(ctx, usr, name); err != nil {
			return err
		}
	}
	fmt.Printf("updated %s %s (%s)\n", usr.Role, usr.Email, usr.ID)
	return nil
}
