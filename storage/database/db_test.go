package database

import (
	"database/sql"
	"testing"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

// the setup helpers accept any executor; *sql.DB must satisfy it
var _ core.DBExecutor = (*sql.DB)(nil)

func TestOpen(t *testing.T) {
	conf := core.NewConfig()
	db, err := Open(conf)
	if err != nil {
		t.Fatal(err)
	}
	if db == nil {
		t.Fatal("Open returned a nil handle")
	}
	_ = db.Close()
}
