package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
	dummydb "github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/storage/database/dummy"
)

var ctx = context.Background()

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*Service, *cadet.Service, *grading.Service) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	emitter := core.NopEmitter{}
	cadetSvc := cadet.NewService(dummydb.NewCadetRepository(db), emitter, core.NewConfig())
	gradeSvc := grading.NewService(dummydb.NewGradingRepository(db), emitter)
	return NewService(cadetSvc, gradeSvc, nil, nopLogger{}), cadetSvc, gradeSvc
}

func seedCadet(t *testing.T, svc *cadet.Service, number, first, last string) cadet.Cadet {
	t.Helper()
	cdt, err := svc.Create(ctx, cadet.NewCadet{
		StudentNumber: number,
		FirstName:     first,
		LastName:      last,
	})
	if err != nil {
		t.Fatal(err)
	}
	return cdt
}

func TestServiceValidate(t *testing.T) {
	svc, cadetSvc, gradeSvc := setup(t)
	cdt := seedCadet(t, cadetSvc, "2021-001", "Juan", "Santos")

	csv := strings.Join([]string{
		"Student Number,Date,Status",
		"2021-001,2025-07-12,P",
		"9999-999,2025-07-12,absent", // no roster match
		"2021-001,garbage,P",         // bad date
	}, "\n")

	summary, err := svc.Validate(ctx, []byte(csv), "attendance.csv", DomainAttendance, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(summary.Records))
	}
	if summary.Records[0].MatchedCadetID != cdt.ID {
		t.Errorf("records[0].MatchedCadetID = %q, want %q", summary.Records[0].MatchedCadetID, cdt.ID)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}

	// a dry run must leave the store untouched
	days, err := gradeSvc.TrainingDays(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 0 {
		t.Errorf("dry run created %d training days", len(days))
	}
	if _, err := gradeSvc.Ledger(ctx, cdt.ID); err != nil {
		t.Fatal(err)
	}

	if _, err = svc.Validate(ctx, []byte(csv), "attendance.dat", DomainAttendance, Options{}); err == nil {
		t.Error("expected an unsupported format error")
	}
}

func TestServiceImportAttendance(t *testing.T) {
	svc, cadetSvc, gradeSvc := setup(t)
	cdt := seedCadet(t, cadetSvc, "2021-001", "Juan", "Santos")
	seedCadet(t, cadetSvc, "2021-002", "Ana", "Reyes")

	csv := strings.Join([]string{
		"Student Number,Date,Status",
		"2021-001,2025-07-12,P",
		"2021-002,2025-07-12,absent",
		"9999-999,2025-07-12,P", // unknown cadet: skipped, never created
	}, "\n")

	summary, err := svc.ImportAttendance(ctx, []byte(csv), "td1.csv", StrategySkip, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 2 || summary.Skipped != 1 || summary.Errors != 0 {
		t.Errorf("summary = %+v, want 2 inserted, 1 skipped", summary)
	}

	roster, err := cadetSvc.Roster(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 2 {
		t.Errorf("roster grew to %d cadets; attendance import must never create cadets", len(roster))
	}

	// re-import with skip strategy is a no-op
	summary, err = svc.ImportAttendance(ctx, []byte(csv), "td1.csv", StrategySkip, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 0 || summary.Updated != 0 || summary.Skipped != 3 {
		t.Errorf("re-import summary = %+v, want everything skipped", summary)
	}

	// overwrite updates changed statuses only
	changed := strings.Join([]string{
		"Student Number,Date,Status",
		"2021-001,2025-07-12,L",
		"2021-002,2025-07-12,absent",
	}, "\n")
	summary, err = svc.ImportAttendance(ctx, []byte(changed), "td1.csv", StrategyOverwrite, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Skipped != 1 {
		t.Errorf("overwrite summary = %+v, want 1 updated, 1 skipped", summary)
	}

	days, err := gradeSvc.TrainingDays(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 {
		t.Fatalf("training days = %d, want 1", len(days))
	}
	records, err := gradeSvc.Attendance(ctx, days[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("attendance records = %d, want 2", len(records))
	}
	for _, rec := range records {
		if rec.CadetID == cdt.ID && rec.Status != grading.AttendanceLate {
			t.Errorf("status = %q, want overwritten to late", rec.Status)
		}
	}
}

func TestServiceImportRoster(t *testing.T) {
	svc, cadetSvc, _ := setup(t)
	seedCadet(t, cadetSvc, "2021-001", "Juan", "Santos")

	csv := strings.Join([]string{
		"Student Number,Name,Company",
		"2021-001,\"Santos, Juan Miguel\",Alpha", // existing
		"2021-010,\"Reyes, Ana\",Bravo",          // new
		",\"Cruz, Ben\",Alpha",                   // missing student number
	}, "\n")

	summary, err := svc.ImportRoster(ctx, []byte(csv), "roster.csv", StrategySkip)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 1 || summary.Skipped != 1 || summary.Errors != 1 {
		t.Errorf("summary = %+v, want 1 inserted, 1 skipped, 1 error", summary)
	}

	existing, err := cadetSvc.GetByStudentNumber(ctx, "2021-001")
	if err != nil {
		t.Fatal(err)
	}
	if existing.FirstName != "Juan" {
		t.Errorf("skip strategy rewrote the existing cadet: %+v", existing)
	}

	summary, err = svc.ImportRoster(ctx, []byte(csv), "roster.csv", StrategyOverwrite)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 2 || summary.Errors != 1 {
		t.Errorf("overwrite summary = %+v, want 2 updated, 1 error", summary)
	}
	existing, _ = cadetSvc.GetByStudentNumber(ctx, "2021-001")
	if existing.FirstName != "Juan Miguel" || existing.Company != "Alpha" {
		t.Errorf("overwrite did not apply: %+v", existing)
	}
}

func TestServiceImportLedger(t *testing.T) {
	svc, cadetSvc, gradeSvc := setup(t)
	cdt := seedCadet(t, cadetSvc, "2021-001", "Juan", "Santos")

	csv := strings.Join([]string{
		"Student Number,Type,Points,Reason",
		"2021-001,merit,5,color guard",
		"2021-001,demerit,2,late formation",
	}, "\n")

	summary, err := svc.ImportLedger(ctx, []byte(csv), "ledger.csv", "MSgt Cruz")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 2 {
		t.Errorf("summary = %+v, want 2 inserted", summary)
	}

	rec, err := gradeSvc.Record(ctx, cdt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.MeritPoints != 5 || rec.DemeritPoints != 2 || rec.LifetimeMeritPoints != 5 {
		t.Errorf("totals = %+v", rec)
	}

	// imports are additive: a second run doubles the totals
	if _, err = svc.ImportLedger(ctx, []byte(csv), "ledger.csv", "MSgt Cruz"); err != nil {
		t.Fatal(err)
	}
	rec, _ = gradeSvc.Record(ctx, cdt.ID)
	if rec.MeritPoints != 10 || rec.DemeritPoints != 4 {
		t.Errorf("totals after second run = %+v", rec)
	}

	entries, err := gradeSvc.Ledger(ctx, cdt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("ledger entries = %d, want 4", len(entries))
	}
	if entries[0].IssuedBy != "MSgt Cruz" {
		t.Errorf("IssuedBy = %q", entries[0].IssuedBy)
	}
}

func TestServiceImportGrades(t *testing.T) {
	svc, cadetSvc, gradeSvc := setup(t)
	cdt := seedCadet(t, cadetSvc, "2021-001", "Juan", "Santos")

	// seed an existing midterm score that a partial import must not zero
	mid := 85.0
	if _, err := gradeSvc.SetGradeInputs(ctx, cdt.ID, grading.UpdateGradeInputs{MidtermScore: &mid}); err != nil {
		t.Fatal(err)
	}

	csv := strings.Join([]string{
		"Student Number,Prelim",
		"2021-001,92.5",
	}, "\n")

	summary, err := svc.ImportGrades(ctx, []byte(csv), "prelims.csv")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("summary = %+v, want 1 updated", summary)
	}

	rec, err := gradeSvc.Record(ctx, cdt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.PrelimScore != 92.5 {
		t.Errorf("PrelimScore = %v", rec.PrelimScore)
	}
	if rec.MidtermScore != 85 {
		t.Errorf("MidtermScore = %v, partial import must leave unlisted columns alone", rec.MidtermScore)
	}
}

func TestComposeReport(t *testing.T) {
	summary := Summary{Inserted: 3, Updated: 1, Skipped: 2, Errors: 1,
		ErrorDetails: []string{"row 4: missing status"}}

	msg := ComposeReport(DomainAttendance, "td1.csv", summary)
	if msg.Subject != "Attendance import report: td1.csv" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	for _, want := range []string{"Inserted: 3", "Updated:  1", "Skipped:  2", "Errors:   1", "row 4: missing status"} {
		if !strings.Contains(msg.BodyStr, want) {
			t.Errorf("body missing %q:\n%s", want, msg.BodyStr)
		}
	}
}
