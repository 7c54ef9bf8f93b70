package grading

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
)

var (
	// errors
	ErrGradeNotFound    = errors.New("grade record not found")
	ErrEntryNotFound    = errors.New("ledger entry not found")
	ErrDayNotFound      = errors.New("training day not found")
	ErrAttendanceExists = errors.New("attendance already recorded for this cadet and day")
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrInvalidPoints    = errors.New("points must be a positive amount")
)

// UpsertOutcome reports what an attendance upsert did.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

type (
	Repository interface {
		// EnsureGradeRecord returns the cadet's grade record, creating an
		// empty active one if none exists yet.
		EnsureGradeRecord(ctx context.Context, cadetID string) (GradeRecord, error)
		GetGradeRecord(ctx context.Context, cadetID string) (GradeRecord, error)
		// UpdateGradeRecord writes the attendance count, subject scores,
		// status and timestamps. The merit/demerit totals are NOT written:
		// they change only through the ledger operations below, so a
		// concurrent ledger increment cannot be lost to a stale read.
		// Lifetime merit is floored at its stored value.
		UpdateGradeRecord(ctx context.Context, rec GradeRecord) (GradeRecord, error)

		// CreateLedgerEntry inserts the entry and applies its point effect to
		// the grade record totals as a single atomic increment (merit entries
		// also bump the lifetime merit counter).
		CreateLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
		// InsertLedgerEntry inserts the entry without touching totals.
		// Reconciler backfill only.
		InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
		// DeleteLedgerEntry removes the entry and reverses its effect on the
		// current totals in the same transaction. Lifetime merit is never
		// decreased.
		DeleteLedgerEntry(ctx context.Context, id string) error
		GetLedgerEntry(ctx context.Context, id string) (LedgerEntry, error)
		QueryLedgerEntries(ctx context.Context, cadetID string) ([]LedgerEntry, error)
		SumLedgerPoints(ctx context.Context, cadetID string, typ EntryType) (int, error)

		GetOrCreateTrainingDay(ctx context.Context, date time.Time, title string) (TrainingDay, error)
		QueryTrainingDays(ctx context.Context) ([]TrainingDay, error)
		CountTrainingDays(ctx context.Context) (int, error)

		// GetAttendanceRecord returns ErrNotFound when no row exists for the pair.
		GetAttendanceRecord(ctx context.Context, dayID, cadetID string) (AttendanceRecord, error)
		// CreateAttendanceRecord returns ErrAttendanceExists on a (day, cadet)
		// unique violation.
		CreateAttendanceRecord(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)
		UpdateAttendanceStatus(ctx context.Context, id string, status AttendanceStatus) error
		QueryAttendanceByDay(ctx context.Context, dayID string) ([]AttendanceRecord, error)
		CountAttendance(ctx context.Context, cadetID string, status AttendanceStatus) (int, error)
	}

	Service struct {
		repo    Repository
		emitter core.EventEmitter
	}
)

// ErrNotFound is what repositories return for missing attendance rows.
var ErrNotFound = errors.New("attendance record not found")

func NewService(repo Repository, emitter core.EventEmitter) *Service {
	return &Service{repo: repo, emitter: emitter}
}

func (svc *Service) Record(ctx context.Context, cadetID string) (GradeRecord, error) {
	return svc.repo.EnsureGradeRecord(ctx, cadetID)
}

// Grade returns the cadet's grade record together with its computed
// score breakdown.
func (svc *Service) Grade(ctx context.Context, cadetID string) (GradeRecord, ScoreBreakdown, error) {
	rec, err := svc.repo.EnsureGradeRecord(ctx, cadetID)
	if err != nil {
		return GradeRecord{}, ScoreBreakdown{}, err
	}
	total, err := svc.repo.CountTrainingDays(ctx)
	if err != nil {
		return GradeRecord{}, ScoreBreakdown{}, err
	}
	return rec, ComputeScore(scoreInputs(rec, total)), nil
}

func scoreInputs(rec GradeRecord, totalDays int) ScoreInputs {
	return ScoreInputs{
		AttendancePresent: rec.AttendancePresent,
		TotalTrainingDays: totalDays,
		MeritPoints:       rec.MeritPoints,
		DemeritPoints:     rec.DemeritPoints,
		PrelimScore:       rec.PrelimScore,
		MidtermScore:      rec.MidtermScore,
		FinalScore:        rec.FinalScore,
		Status:            rec.Status,
	}
}

// SetGradeInputs applies an admin direct edit. Admin edits are
// authoritative; derived recomputation never overwrites them.
func (svc *Service) SetGradeInputs(ctx context.Context, cadetID string, up UpdateGradeInputs) (GradeRecord, error) {
	rec, err := svc.repo.EnsureGradeRecord(ctx, cadetID)
	if err != nil {
		return GradeRecord{}, err
	}
	if up.AttendancePresent != nil {
		total, err := svc.repo.CountTrainingDays(ctx)
		if err != nil {
			return GradeRecord{}, err
		}
		if *up.AttendancePresent > total {
			return GradeRecord{}, core.NewValidationError(nil, core.FieldError{
				Field: "attendance_present",
				Error: "attendance present count cannot exceed total training days",
			})
		}
		rec.AttendancePresent = *up.AttendancePresent
	}
	if up.PrelimScore != nil {
		rec.PrelimScore = clamp(*up.PrelimScore, 0, 100)
	}
	if up.MidtermScore != nil {
		rec.MidtermScore = clamp(*up.MidtermScore, 0, 100)
	}
	if up.FinalScore != nil {
		rec.FinalScore = clamp(*up.FinalScore, 0, 100)
	}
	if up.Status != nil {
		rec.Status = *up.Status
	}
	rec.UpdatedAt = time.Now().UTC()

	rec, err = svc.repo.UpdateGradeRecord(ctx, rec)
	if err != nil {
		return GradeRecord{}, err
	}
	svc.emitter.Emit(core.Event{Type: core.EventGradeUpdated, CadetID: cadetID})
	return rec, nil
}

// AddLedgerEntry appends a merit/demerit entry and atomically applies its
// point effect to the cadet's grade record totals.
func (svc *Service) AddLedgerEntry(ctx context.Context, cadetID string, nle NewLedgerEntry, issuedBy string) (LedgerEntry, error) {
	if nle.Points <= 0 {
		return LedgerEntry{}, ErrInvalidPoints
	}
	if _, err := svc.repo.EnsureGradeRecord(ctx, cadetID); err != nil {
		return LedgerEntry{}, err
	}
	entry := LedgerEntry{
		CadetID:   cadetID,
		Type:      nle.Type,
		Points:    nle.Points,
		Reason:    core.CleanString(nle.Reason),
		IssuedBy:  issuedBy,
		CreatedAt: time.Now().UTC(),
	}
	entry, err := svc.repo.CreateLedgerEntry(ctx, entry)
	if err != nil {
		return LedgerEntry{}, err
	}
	svc.emitter.Emit(core.Event{
		Type:    core.EventLedgerEntryAdded,
		CadetID: cadetID,
		Data:    map[string]interface{}{"entry_id": entry.ID, "entry_type": string(entry.Type), "points": entry.Points},
	})
	return entry, nil
}

// RemoveLedgerEntry deletes an entry, reversing its effect on current
// totals (lifetime merit stays).
func (svc *Service) RemoveLedgerEntry(ctx context.Context, id string) error {
	entry, err := svc.repo.GetLedgerEntry(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteLedgerEntry(ctx, id); err != nil {
		return err
	}
	svc.emitter.Emit(core.Event{
		Type:    core.EventLedgerEntryRemoved,
		CadetID: entry.CadetID,
		Data:    map[string]interface{}{"entry_id": entry.ID, "entry_type": string(entry.Type), "points": entry.Points},
	})
	return nil
}

func (svc *Service) Ledger(ctx context.Context, cadetID string) ([]LedgerEntry, error) {
	return svc.repo.QueryLedgerEntries(ctx, cadetID)
}

// Attendance lists the attendance records marked for a training day.
func (svc *Service) Attendance(ctx context.Context, dayID string) ([]AttendanceRecord, error) {
	return svc.repo.QueryAttendanceByDay(ctx, dayID)
}

func (svc *Service) TrainingDays(ctx context.Context) ([]TrainingDay, error) {
	return svc.repo.QueryTrainingDays(ctx)
}

func (svc *Service) CreateTrainingDay(ctx context.Context, date time.Time, title string) (TrainingDay, error) {
	return svc.repo.GetOrCreateTrainingDay(ctx, Day(date), core.CleanString(title))
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MarkAttendance upserts the (day, cadet) attendance record. When a row
// already exists it is updated only if overwrite is set; otherwise the
// call reports OutcomeSkipped. Safe to re-run with the same input.
func (svc *Service) MarkAttendance(ctx context.Context, date time.Time, title, cadetID string, status AttendanceStatus, overwrite bool) (UpsertOutcome, error) {
	if !ValidAttendanceStatus(status) {
		return OutcomeSkipped, ErrInvalidStatus
	}
	day, err := svc.repo.GetOrCreateTrainingDay(ctx, Day(date), title)
	if err != nil {
		return OutcomeSkipped, err
	}

	existing, err := svc.repo.GetAttendanceRecord(ctx, day.ID, cadetID)
	switch err {
	case nil:
		if !overwrite {
			return OutcomeSkipped, nil
		}
		if existing.Status == status {
			return OutcomeSkipped, nil
		}
		if err = svc.repo.UpdateAttendanceStatus(ctx, existing.ID, status); err != nil {
			return OutcomeSkipped, err
		}
		svc.emitter.Emit(core.Event{Type: core.EventAttendanceMarked, CadetID: cadetID})
		return OutcomeUpdated, nil
	case ErrNotFound:
		now := time.Now().UTC()
		rec := AttendanceRecord{
			TrainingDayID: day.ID,
			CadetID:       cadetID,
			Status:        status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err = svc.repo.CreateAttendanceRecord(ctx, rec); err != nil {
			// lost the race on the (day, cadet) unique constraint
			if err == ErrAttendanceExists {
				return OutcomeSkipped, nil
			}
			return OutcomeSkipped, err
		}
		svc.emitter.Emit(core.Event{Type: core.EventAttendanceMarked, CadetID: cadetID})
		return OutcomeInserted, nil
	default:
		return OutcomeSkipped, err
	}
}

// Standing is one leaderboard row.
type Standing struct {
	Cadet cadet.Cadet    `json:"cadet"`
	Score ScoreBreakdown `json:"score"`
}

// Standings computes the leaderboard for the given roster, ordered by
// final grade descending.
func (svc *Service) Standings(ctx context.Context, roster []cadet.Cadet) ([]Standing, error) {
	total, err := svc.repo.CountTrainingDays(ctx)
	if err != nil {
		return nil, err
	}
	standings := make([]Standing, 0, len(roster))
	for _, cdt := range roster {
		rec, err := svc.repo.EnsureGradeRecord(ctx, cdt.ID)
		if err != nil {
			return nil, err
		}
		standings = append(standings, Standing{Cadet: cdt, Score: ComputeScore(scoreInputs(rec, total))})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score.FinalGrade > standings[j].Score.FinalGrade
	})
	return standings, nil
}
