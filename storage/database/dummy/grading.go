package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

type gradingRepository struct {
	db *gradingTables
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{db: db.grading}
}

func (repo *gradingRepository) EnsureGradeRecord(_ context.Context, cadetID string) (grading.GradeRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if rec, ok := repo.db.grades[cadetID]; ok {
		return *rec, nil
	}
	now := time.Now().UTC()
	rec := grading.GradeRecord{
		ID:        uuid.New().String(),
		CadetID:   cadetID,
		Status:    grading.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.db.grades[cadetID] = &rec
	return rec, nil
}

func (repo *gradingRepository) GetGradeRecord(_ context.Context, cadetID string) (grading.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.grades[cadetID]; ok {
		return *rec, nil
	}
	return grading.GradeRecord{}, grading.ErrGradeNotFound
}

func (repo *gradingRepository) UpdateGradeRecord(_ context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.grades[rec.CadetID]
	if !ok {
		return grading.GradeRecord{}, grading.ErrGradeNotFound
	}
	// totals belong to the ledger operations; lifetime merit never decreases
	rec.MeritPoints = stored.MeritPoints
	rec.DemeritPoints = stored.DemeritPoints
	if rec.LifetimeMeritPoints < stored.LifetimeMeritPoints {
		rec.LifetimeMeritPoints = stored.LifetimeMeritPoints
	}
	repo.db.grades[rec.CadetID] = &rec
	return rec, nil
}

func (repo *gradingRepository) CreateLedgerEntry(_ context.Context, entry grading.LedgerEntry) (grading.LedgerEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.grades[entry.CadetID]
	if !ok {
		return grading.LedgerEntry{}, grading.ErrGradeNotFound
	}

	entry.ID = uuid.New().String()
	repo.db.ledger[entry.ID] = &entry

	// same logical operation as the insert
	if entry.Type == grading.EntryMerit {
		rec.MeritPoints += entry.Points
		rec.LifetimeMeritPoints += entry.Points
	} else {
		rec.DemeritPoints += entry.Points
	}
	rec.UpdatedAt = time.Now().UTC()
	return entry, nil
}

func (repo *gradingRepository) InsertLedgerEntry(_ context.Context, entry grading.LedgerEntry) (grading.LedgerEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = uuid.New().String()
	repo.db.ledger[entry.ID] = &entry
	return entry, nil
}

func (repo *gradingRepository) DeleteLedgerEntry(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry, ok := repo.db.ledger[id]
	if !ok {
		return grading.ErrEntryNotFound
	}
	delete(repo.db.ledger, id)

	// reverse the current totals; lifetime merit stays
	if rec, ok := repo.db.grades[entry.CadetID]; ok {
		if entry.Type == grading.EntryMerit {
			rec.MeritPoints -= entry.Points
		} else {
			rec.DemeritPoints -= entry.Points
		}
		if rec.MeritPoints < 0 {
			rec.MeritPoints = 0
		}
		if rec.DemeritPoints < 0 {
			rec.DemeritPoints = 0
		}
		rec.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (repo *gradingRepository) GetLedgerEntry(_ context.Context, id string) (grading.LedgerEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if entry, ok := repo.db.ledger[id]; ok {
		return *entry, nil
	}
	return grading.LedgerEntry{}, grading.ErrEntryNotFound
}

func (repo *gradingRepository) QueryLedgerEntries(_ context.Context, cadetID string) ([]grading.LedgerEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []grading.LedgerEntry
	for _, entry := range repo.db.ledger {
		if entry.CadetID == cadetID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *gradingRepository) SumLedgerPoints(_ context.Context, cadetID string, typ grading.EntryType) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sum int
	for _, entry := range repo.db.ledger {
		if entry.CadetID == cadetID && entry.Type == typ {
			sum += entry.Points
		}
	}
	return sum, nil
}

func (repo *gradingRepository) GetOrCreateTrainingDay(_ context.Context, date time.Time, title string) (grading.TrainingDay, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := date.Format("2006-01-02")
	if day, ok := repo.db.days[key]; ok {
		return *day, nil
	}
	day := grading.TrainingDay{
		ID:        uuid.New().String(),
		Date:      date,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	repo.db.days[key] = &day
	return day, nil
}

func (repo *gradingRepository) QueryTrainingDays(_ context.Context) ([]grading.TrainingDay, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	days := make([]grading.TrainingDay, 0, len(repo.db.days))
	for _, day := range repo.db.days {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (repo *gradingRepository) CountTrainingDays(_ context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.days), nil
}

func attendanceKey(dayID, cadetID string) string {
	return dayID + "|" + cadetID
}

func (repo *gradingRepository) GetAttendanceRecord(_ context.Context, dayID, cadetID string) (grading.AttendanceRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.attendance[attendanceKey(dayID, cadetID)]; ok {
		return *rec, nil
	}
	return grading.AttendanceRecord{}, grading.ErrNotFound
}

func (repo *gradingRepository) CreateAttendanceRecord(_ context.Context, rec grading.AttendanceRecord) (grading.AttendanceRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := attendanceKey(rec.TrainingDayID, rec.CadetID)
	if _, ok := repo.db.attendance[key]; ok {
		return grading.AttendanceRecord{}, grading.ErrAttendanceExists
	}
	rec.ID = uuid.New().String()
	repo.db.attendance[key] = &rec
	return rec, nil
}

func (repo *gradingRepository) UpdateAttendanceStatus(_ context.Context, id string, status grading.AttendanceStatus) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, rec := range repo.db.attendance {
		if rec.ID == id {
			rec.Status = status
			rec.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return grading.ErrNotFound
}

func (repo *gradingRepository) QueryAttendanceByDay(_ context.Context, dayID string) ([]grading.AttendanceRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var records []grading.AttendanceRecord
	for _, rec := range repo.db.attendance {
		if rec.TrainingDayID == dayID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CadetID < records[j].CadetID })
	return records, nil
}

func (repo *gradingRepository) CountAttendance(_ context.Context, cadetID string, status grading.AttendanceStatus) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, rec := range repo.db.attendance {
		if rec.CadetID == cadetID && rec.Status == status {
			count++
		}
	}
	return count, nil
}
