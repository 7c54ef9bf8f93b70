package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

const reconcileIssuer = "system reconciler"

// reconcile backfills missing ledger entries for one cadet, or the whole
// roster when cadetID is empty.
func (cli *commandLine) reconcile(cadetID string) error {
	ctx := context.Background()

	if cadetID != "" {
		res, err := cli.gradingSvc.ReconcileLedger(ctx, cadetID, reconcileIssuer)
		if err != nil {
			return err
		}
		cli.printResult(res)
		return nil
	}

	roster, err := cli.cadetSvc.Roster(ctx)
	if err != nil {
		return err
	}
	for _, cdt := range roster {
		res, err := cli.gradingSvc.ReconcileLedger(ctx, cdt.ID, reconcileIssuer)
		if err != nil {
			if errors.Cause(err) == grading.ErrGradeNotFound {
				continue // no grade record yet, nothing to reconcile
			}
			return err
		}
		if res.Changed() || len(res.Flags) > 0 {
			cli.printResult(res)
		}
	}
	return nil
}

func (cli *commandLine) printResult(res grading.ReconcileResult) {
	fmt.Printf("cadet %s: merit backfilled %d, demerit backfilled %d\n",
		res.CadetID, res.MeritBackfilled, res.DemeritBackfilled)
	for _, flag := range res.Flags {
		fmt.Printf("  flag: %s\n", flag)
	}
}
