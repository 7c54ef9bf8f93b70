package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

type gradeRow struct {
	ID                  string    `db:"id"`
	CadetID             string    `db:"cadet_id"`
	AttendancePresent   int       `db:"attendance_present"`
	MeritPoints         int       `db:"merit_points"`
	DemeritPoints       int       `db:"demerit_points"`
	LifetimeMeritPoints int       `db:"lifetime_merit_points"`
	PrelimScore         float64   `db:"prelim_score"`
	MidtermScore        float64   `db:"midterm_score"`
	FinalScore          float64   `db:"final_score"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r gradeRow) unpack() grading.GradeRecord {
	return grading.GradeRecord{
		ID:                  r.ID,
		CadetID:             r.CadetID,
		AttendancePresent:   r.AttendancePresent,
		MeritPoints:         r.MeritPoints,
		DemeritPoints:       r.DemeritPoints,
		LifetimeMeritPoints: r.LifetimeMeritPoints,
		PrelimScore:         r.PrelimScore,
		MidtermScore:        r.MidtermScore,
		FinalScore:          r.FinalScore,
		Status:              grading.GradeStatus(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type ledgerRow struct {
	ID        string    `db:"id"`
	CadetID   string    `db:"cadet_id"`
	Type      string    `db:"entry_type"`
	Points    int       `db:"points"`
	Reason    string    `db:"reason"`
	IssuedBy  string    `db:"issued_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r ledgerRow) unpack() grading.LedgerEntry {
	return grading.LedgerEntry{
		ID:        r.ID,
		CadetID:   r.CadetID,
		Type:      grading.EntryType(r.Type),
		Points:    r.Points,
		Reason:    r.Reason,
		IssuedBy:  r.IssuedBy,
		CreatedAt: r.CreatedAt,
	}
}

type trainingDayRow struct {
	ID        string    `db:"id"`
	Date      time.Time `db:"date"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

type attendanceRow struct {
	ID            string    `db:"id"`
	TrainingDayID string    `db:"training_day_id"`
	CadetID       string    `db:"cadet_id"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r attendanceRow) unpack() grading.AttendanceRecord {
	return grading.AttendanceRecord{
		ID:            r.ID,
		TrainingDayID: r.TrainingDayID,
		CadetID:       r.CadetID,
		Status:        grading.AttendanceStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) grading.Repository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) EnsureGradeRecord(ctx context.Context, cadetID string) (grading.GradeRecord, error) {
	rec, err := repo.GetGradeRecord(ctx, cadetID)
	if err == nil {
		return rec, nil
	}
	if err != grading.ErrGradeNotFound {
		return grading.GradeRecord{}, err
	}

	now := time.Now().UTC()
	row := gradeRow{
		ID:        uuid.New().String(),
		CadetID:   cadetID,
		Status:    string(grading.StatusActive),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO grades (id, cadet_id, attendance_present, merit_points, demerit_points, lifetime_merit_points,
		                    prelim_score, midterm_score, final_score, status, created_at, updated_at)
		VALUES (:id, :cadet_id, :attendance_present, :merit_points, :demerit_points, :lifetime_merit_points,
		        :prelim_score, :midterm_score, :final_score, :status, :created_at, :updated_at)
		ON CONFLICT (cadet_id) DO NOTHING`, row)
	if err != nil {
		return grading.GradeRecord{}, errors.Wrap(err, "inserting grade record")
	}
	// re-read: a concurrent EnsureGradeRecord may have won the conflict
	return repo.GetGradeRecord(ctx, cadetID)
}

func (repo *gradingRepository) GetGradeRecord(ctx context.Context, cadetID string) (grading.GradeRecord, error) {
	var row gradeRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM grades WHERE cadet_id = $1`, cadetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.GradeRecord{}, grading.ErrGradeNotFound
		}
		return grading.GradeRecord{}, errors.Wrap(err, "getting grade record")
	}
	return row.unpack(), nil
}

func (repo *gradingRepository) UpdateGradeRecord(ctx context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	// GREATEST keeps the lifetime merit counter monotonic
	res, err := repo.db.ExecContext(ctx, `
		UPDATE grades
		SET attendance_present = $2, prelim_score = $3, midterm_score = $4, final_score = $5,
		    status = $6, lifetime_merit_points = GREATEST(lifetime_merit_points, $7), updated_at = $8
		WHERE cadet_id = $1`,
		rec.CadetID, rec.AttendancePresent, rec.PrelimScore, rec.MidtermScore, rec.FinalScore,
		string(rec.Status), rec.LifetimeMeritPoints, rec.UpdatedAt,
	)
	if err != nil {
		return grading.GradeRecord{}, errors.Wrap(err, "updating grade record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.GradeRecord{}, grading.ErrGradeNotFound
	}
	return repo.GetGradeRecord(ctx, rec.CadetID)
}

func (repo *gradingRepository) CreateLedgerEntry(ctx context.Context, entry grading.LedgerEntry) (grading.LedgerEntry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return grading.LedgerEntry{}, errors.Wrap(err, "beginning ledger tx")
	}
	defer func() { _ = tx.Rollback() }()

	entry.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO merit_demerit_logs (id, cadet_id, entry_type, points, reason, issued_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.CadetID, string(entry.Type), entry.Points, entry.Reason, entry.IssuedBy, entry.CreatedAt,
	)
	if err != nil {
		return grading.LedgerEntry{}, errors.Wrap(err, "inserting ledger entry")
	}

	// single atomic increment; two concurrent imports must not lose updates
	if entry.Type == grading.EntryMerit {
		_, err = tx.ExecContext(ctx, `
			UPDATE grades
			SET merit_points = merit_points + $2, lifetime_merit_points = lifetime_merit_points + $2, updated_at = NOW()
			WHERE cadet_id = $1`,
			entry.CadetID, entry.Points,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE grades SET demerit_points = demerit_points + $2, updated_at = NOW() WHERE cadet_id = $1`,
			entry.CadetID, entry.Points,
		)
	}
	if err != nil {
		return grading.LedgerEntry{}, errors.Wrap(err, "applying ledger entry to grade totals")
	}

	if err = tx.Commit(); err != nil {
		return grading.LedgerEntry{}, errors.Wrap(err, "committing ledger tx")
	}
	return entry, nil
}

func (repo *gradingRepository) InsertLedgerEntry(ctx context.Context, entry grading.LedgerEntry) (grading.LedgerEntry, error) {
	entry.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO merit_demerit_logs (id, cadet_id, entry_type, points, reason, issued_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.CadetID, string(entry.Type), entry.Points, entry.Reason, entry.IssuedBy, entry.CreatedAt,
	)
	if err != nil {
		return grading.LedgerEntry{}, errors.Wrap(err, "inserting ledger entry")
	}
	return entry, nil
}

func (repo *gradingRepository) DeleteLedgerEntry(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning ledger tx")
	}
	defer func() { _ = tx.Rollback() }()

	var row ledgerRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM merit_demerit_logs WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return grading.ErrEntryNotFound
		}
		return errors.Wrap(err, "getting ledger entry")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM merit_demerit_logs WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting ledger entry")
	}

	// reverse the current totals; lifetime merit is never decreased
	if grading.EntryType(row.Type) == grading.EntryMerit {
		_, err = tx.ExecContext(ctx, `
			UPDATE grades SET merit_points = GREATEST(merit_points - $2, 0), updated_at = NOW() WHERE cadet_id = $1`,
			row.CadetID, row.Points,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE grades SET demerit_points = GREATEST(demerit_points - $2, 0), updated_at = NOW() WHERE cadet_id = $1`,
			row.CadetID, row.Points,
		)
	}
	if err != nil {
		return errors.Wrap(err, "reverting ledger entry from grade totals")
	}

	return errors.Wrap(tx.Commit(), "committing ledger tx")
}

func (repo *gradingRepository) GetLedgerEntry(ctx context.Context, id string) (grading.LedgerEntry, error) {
	var row ledgerRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM merit_demerit_logs WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.LedgerEntry{}, grading.ErrEntryNotFound
		}
		return grading.LedgerEntry{}, errors.Wrap(err, "getting ledger entry")
	}
	return row.unpack(), nil
}

func (repo *gradingRepository) QueryLedgerEntries(ctx context.Context, cadetID string) ([]grading.LedgerEntry, error) {
	var rows []ledgerRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM merit_demerit_logs WHERE cadet_id = $1 ORDER BY created_at`, cadetID)
	if err != nil {
		return nil, errors.Wrap(err, "querying ledger entries")
	}
	entries := make([]grading.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.unpack())
	}
	return entries, nil
}

func (repo *gradingRepository) SumLedgerPoints(ctx context.Context, cadetID string, typ grading.EntryType) (int, error) {
	var sum int
	err := repo.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(points), 0) FROM merit_demerit_logs WHERE cadet_id = $1 AND entry_type = $2`,
		cadetID, string(typ))
	return sum, errors.Wrap(err, "summing ledger points")
}

func (repo *gradingRepository) GetOrCreateTrainingDay(ctx context.Context, date time.Time, title string) (grading.TrainingDay, error) {
	// idempotent get-or-create keyed on the calendar date
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO training_days (id, date, title, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date) DO NOTHING`,
		uuid.New().String(), date, title, time.Now().UTC(),
	)
	if err != nil {
		return grading.TrainingDay{}, errors.Wrap(err, "inserting training day")
	}

	var row trainingDayRow
	if err = repo.db.GetContext(ctx, &row, `SELECT * FROM training_days WHERE date = $1`, date); err != nil {
		return grading.TrainingDay{}, errors.Wrap(err, "getting training day")
	}
	return grading.TrainingDay{ID: row.ID, Date: row.Date, Title: row.Title, CreatedAt: row.CreatedAt}, nil
}

func (repo *gradingRepository) QueryTrainingDays(ctx context.Context) ([]grading.TrainingDay, error) {
	var rows []trainingDayRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM training_days ORDER BY date`); err != nil {
		return nil, errors.Wrap(err, "querying training days")
	}
	days := make([]grading.TrainingDay, 0, len(rows))
	for _, row := range rows {
		days = append(days, grading.TrainingDay{ID: row.ID, Date: row.Date, Title: row.Title, CreatedAt: row.CreatedAt})
	}
	return days, nil
}

func (repo *gradingRepository) CountTrainingDays(ctx context.Context) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM training_days`)
	return count, errors.Wrap(err, "counting training days")
}

func (repo *gradingRepository) GetAttendanceRecord(ctx context.Context, dayID, cadetID string) (grading.AttendanceRecord, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM attendance_records WHERE training_day_id = $1 AND cadet_id = $2`, dayID, cadetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.AttendanceRecord{}, grading.ErrNotFound
		}
		return grading.AttendanceRecord{}, errors.Wrap(err, "getting attendance record")
	}
	return row.unpack(), nil
}

func (repo *gradingRepository) CreateAttendanceRecord(ctx context.Context, rec grading.AttendanceRecord) (grading.AttendanceRecord, error) {
	rec.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, training_day_id, cadet_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.TrainingDayID, rec.CadetID, string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return grading.AttendanceRecord{}, grading.ErrAttendanceExists
		}
		return grading.AttendanceRecord{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo *gradingRepository) UpdateAttendanceStatus(ctx context.Context, id string, status grading.AttendanceStatus) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE attendance_records SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrap(err, "updating attendance status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.ErrNotFound
	}
	return nil
}

func (repo *gradingRepository) QueryAttendanceByDay(ctx context.Context, dayID string) ([]grading.AttendanceRecord, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM attendance_records WHERE training_day_id = $1 ORDER BY cadet_id`, dayID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]grading.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.unpack())
	}
	return records, nil
}

func (repo *gradingRepository) CountAttendance(ctx context.Context, cadetID string, status grading.AttendanceStatus) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM attendance_records WHERE cadet_id = $1 AND status = $2`, cadetID, string(status))
	return count, errors.Wrap(err, "counting attendance")
}
