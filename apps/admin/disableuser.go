package main

import (
	"context"

	"github.com/trezcool/academia/core/store"
)

// disableUser blocks the sign-in of the account and deactivates its profile.
func (cli *commandLine) disableUser(email string, disabled bool) error {
	ctx := context.Background()
	uid, err := cli.findAccount(ctx, email)
	if err != nil {
		return err
	}
	if err := cli.dir.SetDisabled(ctx, uid, disabled); err != nil {
		return err
	}

	err = cli.profiles.Update(ctx, uid, store.Fields{"isActive": !disabled})
	if store.IsNotFound(err) { // an identity without profile
		return nil
	}
	return err
}
