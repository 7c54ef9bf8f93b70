package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	stf, err := cli.staffSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := stf.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.staffRepo.UpdateStaff(ctx, stf); err != nil {
		return err
	}
	return nil
}
