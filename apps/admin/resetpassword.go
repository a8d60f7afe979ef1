package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: uname})
	}
	if err != nil {
		return err
	}

	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
