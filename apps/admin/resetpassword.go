package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

func (cli *commandLine) findAccount(ctx context.Context, email string) (string, error) {
	email = core.CleanString(email, true /* lower */)
	acc, found, err := cli.dir.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !found {
		return "", auth.NewError(auth.KindNotFound, fmt.Errorf("no account for %q", email))
	}
	return acc.UID, nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	uid, err := cli.findAccount(ctx, email)
	if err != nil {
		return err
	}
	return cli.dir.SetPassword(ctx, uid, pwd)
}
