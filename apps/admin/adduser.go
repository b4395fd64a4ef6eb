package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/account"
)

// addUser creates an admin account, or promotes the existing account with that email.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()

	acc, err := cli.accSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return err
		}
		_, err = cli.accSvc.Create(ctx, account.NewAccount{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
		}, role)
		return err
	}

	if acc, err = cli.accSvc.SetPassword(ctx, acc, pwd); err != nil {
		return err
	}
	_, err = cli.accSvc.SetRole(ctx, acc, role)
	return err
}
