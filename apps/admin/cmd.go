package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	staffRepo  staff.Repository
	staffSvc   *staff.Service
	cadetSvc   *cadet.Service
	gradingSvc *grading.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a migration command (up, down, status, ...)")
	fmt.Println("  addstaff -name NAME -username USERNAME -email EMAIL [-rank RANK] [-admin] - create or update a staff account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a staff account's password")
	fmt.Println("  reconcile [-cadet ID] - backfill missing ledger entries against stored totals")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffName := addStaffCmd.String("name", "", "The staff member's full name.")
	addStaffRank := addStaffCmd.String("rank", "", "The staff member's rank, eg. SSgt.")
	addStaffUname := addStaffCmd.String("username", "", "The account username.")
	addStaffEmail := addStaffCmd.String("email", "", "The account email. The password will be prompted next.")
	addStaffAdmin := addStaffCmd.Bool("admin", false, "Grant admin rights.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The account's username or email. The password will be prompted next.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcileCadet := reconcileCmd.String("cadet", "", "Reconcile a single cadet's ledger. Defaults to the whole roster.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffName == "" || *addStaffUname == "" || *addStaffEmail == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(*addStaffName, *addStaffRank, *addStaffUname, *addStaffEmail, pwd, *addStaffAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.reconcile(*reconcileCadet)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
