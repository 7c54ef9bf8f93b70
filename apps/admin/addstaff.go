package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

// addStaff updates or creates a staff.Staff account.
func (cli *commandLine) addStaff(name, rank, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	stf, err := cli.staffSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != staff.ErrNotFound {
			return err
		}
		_, err = cli.staffSvc.Create(ctx, staff.NewStaff{
			Name:     name,
			Rank:     rank,
			Username: uname,
			Email:    email,
			Password: pwd,
			IsAdmin:  isAdmin,
		})
		return err
	}

	stf.Name = core.CleanString(name)
	stf.Rank = core.CleanString(rank)
	stf.IsActive = true
	stf.IsAdmin = isAdmin
	if err = stf.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.staffRepo.UpdateStaff(ctx, stf)
	return err
}
