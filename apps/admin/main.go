package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/storage/database"
	sqlxrepos "github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())
	dbx := sqlx.NewDb(db, "postgres")

	staffRepo := sqlxrepos.NewStaffRepository(dbx)
	emitter := core.NopEmitter{}

	// start CLI
	cli := commandLine{
		db:         db,
		staffRepo:  staffRepo,
		staffSvc:   staff.NewService(staffRepo),
		cadetSvc:   cadet.NewService(sqlxrepos.NewCadetRepository(dbx), emitter, conf),
		gradingSvc: grading.NewService(sqlxrepos.NewGradingRepository(dbx), emitter),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
