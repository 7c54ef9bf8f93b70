package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
	dummydb "github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/storage/database/dummy"
)

var staffRepo staff.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := core.NewConfig()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	staffRepo = dummydb.NewStaffRepository(db)
	emitter := core.NopEmitter{}

	return &commandLine{
		staffRepo:  staffRepo,
		staffSvc:   staff.NewService(staffRepo),
		cadetSvc:   cadet.NewService(dummydb.NewCadetRepository(db), emitter, conf),
		gradingSvc: grading.NewService(dummydb.NewGradingRepository(db), emitter),
	}
}

func createStaff(t *testing.T, svc *staff.Service, name, uname, email, pwd string) staff.Staff {
	t.Helper()

	stf, err := svc.Create(context.Background(), staff.NewStaff{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: pwd,
	})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	return stf
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME argument")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create requires a NAME argument"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	stf := createStaff(t, cli.staffSvc, "Awe Tester", "awe", "awe@test.ph", "initialpwd")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "staff not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: staff.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", stf.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", stf.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := staffRepo.GetStaffByID(context.Background(), stf.ID)
				if err != nil {
					t.Fatalf("GetStaffByID() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, stf.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addStaff(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("secretpwd"), nil }

	args := []string{"admin", "addstaff", "-name", "Juan Santos", "-rank", "SSgt", "-username", "jsantos", "-email", "jsantos@test.ph", "-admin"}
	if err := cli.run(args); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}

	stf, err := cli.staffSvc.GetByUsernameOrEmail(context.Background(), "jsantos")
	if err != nil {
		t.Fatalf("GetByUsernameOrEmail() failed, %v", err)
	}
	if !stf.IsAdmin {
		t.Error("expected admin rights")
	}
	if stf.DisplayName() != "SSgt Juan Santos" {
		t.Errorf("DisplayName() = %q", stf.DisplayName())
	}
	if err = stf.CheckPassword("secretpwd"); err != nil {
		t.Error("password was not set")
	}

	// running again updates the existing account
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("rotatedpwd"), nil }
	args = []string{"admin", "addstaff", "-name", "Juan Santos", "-rank", "TSgt", "-username", "jsantos", "-email", "jsantos@test.ph"}
	if err = cli.run(args); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	stf, err = cli.staffSvc.GetByUsernameOrEmail(context.Background(), "jsantos")
	if err != nil {
		t.Fatalf("GetByUsernameOrEmail() failed, %v", err)
	}
	if stf.Rank != "TSgt" {
		t.Errorf("Rank = %q, want TSgt", stf.Rank)
	}
	if stf.IsAdmin {
		t.Error("admin rights should have been revoked")
	}
	if err = stf.CheckPassword("rotatedpwd"); err != nil {
		t.Error("password was not rotated")
	}
}

func Test_commandLine_reconcile(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	cdt, err := cli.cadetSvc.Create(ctx, cadet.NewCadet{
		StudentNumber: "2021_00123",
		FirstName:     "Juan",
		LastName:      "Dela Cruz",
	})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err = cli.gradingSvc.AddLedgerEntry(ctx, cdt.ID, grading.NewLedgerEntry{
		Type: grading.EntryMerit, Points: 5, Reason: "drill excellence",
	}, "SSgt Santos"); err != nil {
		t.Fatalf("AddLedgerEntry() failed, %v", err)
	}

	// consistent ledger: no output, no error
	if err = cli.run([]string{"admin", "reconcile", "-cadet", cdt.ID}); err != nil {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
	entries, err := cli.gradingSvc.Ledger(ctx, cdt.ID)
	if err != nil {
		t.Fatalf("Ledger() failed, %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1 (no backfill on a consistent ledger)", len(entries))
	}
}
