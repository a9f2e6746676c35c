package main

import (
	"context"
	"fmt"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/user"
)

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(uname, email, fullName, pwd, role string) error {
	if fullName == "" {
		fullName = uname
	}
	nu := user.NewUser{
		Username: core.CleanString(uname, true /* lower */),
		Email:    core.CleanString(email, true /* lower */),
		FullName: fullName,
		Password: pwd,
		Role:     role,
	}
	if err := cli.validate.Struct(nu); err != nil {
		return err
	}

	usr, err := cli.usrSvc.EnsureUser(context.Background(), nu.Username, nu.Email, nu.FullName, nu.Password, nu.Role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved with role %s\n", usr.Username, usr.Role)
	return nil
}
