package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

var errInvalidRole = errors.New("invalid role")

// addUser updates or creates an active user.User with the given role
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	if user.RolePriority(role) == 0 {
		return errInvalidRole
	}
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}
		usr = user.User{Username: uname, Email: email}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	usr.Role = role
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Printf("user %s (%s) saved\n", usr.Username, usr.Role)
	return nil
}
