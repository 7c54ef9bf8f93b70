package dummydb

import (
	"sync"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

type (
	DB struct {
		cadet   *cadetTable
		grading *gradingTables
		staff   *staffTable
	}

	cadetTable struct {
		sync.RWMutex
		table map[string]*cadet.Cadet
	}

	gradingTables struct {
		sync.RWMutex
		grades     map[string]*grading.GradeRecord // keyed by cadet ID
		ledger     map[string]*grading.LedgerEntry
		days       map[string]*grading.TrainingDay
		attendance map[string]*grading.AttendanceRecord
	}

	staffTable struct {
		sync.RWMutex
		table map[string]*staff.Staff
	}
)

func Open() (*DB, error) {
	db := &DB{
		cadet: &cadetTable{table: make(map[string]*cadet.Cadet)},
		grading: &gradingTables{
			grades:     make(map[string]*grading.GradeRecord),
			ledger:     make(map[string]*grading.LedgerEntry),
			days:       make(map[string]*grading.TrainingDay),
			attendance: make(map[string]*grading.AttendanceRecord),
		},
		staff: &staffTable{table: make(map[string]*staff.Staff)},
	}
	return db, nil
}

// SeedGradeTotals overwrites a cadet's grade totals directly, bypassing
// the ledger. It stands in for rows written outside the application,
// such as totals recorded before the ledger existed.
func (db *DB) SeedGradeTotals(cadetID string, merit, demerit int) error {
	db.grading.Lock()
	defer db.grading.Unlock()

	rec, ok := db.grading.grades[cadetID]
	if !ok {
		return grading.ErrGradeNotFound
	}
	rec.MeritPoints = merit
	rec.DemeritPoints = demerit
	if rec.LifetimeMeritPoints < merit {
		rec.LifetimeMeritPoints = merit
	}
	return nil
}
