package importer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

// Domain selects the import target.
type Domain string

const (
	DomainAttendance Domain = "attendance"
	DomainGrades     Domain = "grades"
	DomainLedger     Domain = "ledger"
	DomainRoster     Domain = "roster"
)

// Service runs the import pipeline: parse, normalize, flag duplicates,
// match, apply. Parse failures abort the batch; everything after that is
// per-record.
type Service struct {
	cadets  *cadet.Service
	grades  *grading.Service
	mailSvc core.EmailService
	logger  core.Logger
}

func NewService(cadets *cadet.Service, grades *grading.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{cadets: cadets, grades: grades, mailSvc: mailSvc, logger: logger}
}

// Normalize parses an uploaded file into records for the target domain.
// The returned records preserve source row order and include per-record
// validation errors and duplicate-in-batch flags.
func (svc *Service) Normalize(data []byte, filename string, domain Domain, opts Options) ([]Record, error) {
	var records []Record
	if domain == DomainAttendance && strings.EqualFold(filepath.Ext(filename), ".pdf") {
		lines, err := parsePDFLines(data)
		if err != nil {
			return nil, err
		}
		records = normalizePDF(lines, opts)
	} else {
		rows, err := parseFile(data, filename)
		if err != nil {
			return nil, err
		}
		switch domain {
		case DomainAttendance:
			records = normalizeAttendance(rows, opts)
		case DomainGrades:
			records = normalizeGrades(rows)
		case DomainLedger:
			records = normalizeLedger(rows)
		case DomainRoster:
			records = normalizeRoster(rows)
		default:
			return nil, errors.Errorf("unknown import domain %q", domain)
		}
	}
	flagDuplicates(records, time.Now().UTC())
	return records, nil
}

// Validate is the dry-run path: it returns the full normalized record set
// with validation and duplicate flags plus match resolution, applying
// nothing.
func (svc *Service) Validate(ctx context.Context, data []byte, filename string, domain Domain, opts Options) (Summary, error) {
	records, err := svc.Normalize(data, filename, domain, opts)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	if domain != DomainRoster {
		roster, err := svc.cadets.Roster(ctx)
		if err != nil {
			return Summary{}, err
		}
		m := newMatcher(roster)
		for i := range records {
			var cdt cadet.Cadet
			var ok bool
			if domain == DomainGrades {
				cdt, ok = m.matchForGrades(records[i])
			} else {
				cdt, ok = m.match(records[i])
			}
			if ok {
				records[i].MatchedCadetID = cdt.ID
			} else {
				summary.Skipped++
			}
		}
	}
	for _, rec := range records {
		if !rec.Valid() {
			summary.Errors++
		}
	}
	summary.Records = records
	return summary, nil
}

// ImportAttendance commits an attendance batch.
func (svc *Service) ImportAttendance(ctx context.Context, data []byte, filename string, strategy Strategy, opts Options) (Summary, error) {
	records, err := svc.Normalize(data, filename, DomainAttendance, opts)
	if err != nil {
		return Summary{}, err
	}
	return svc.ApplyAttendance(ctx, records, strategy, opts)
}

// ApplyAttendance upserts attendance records. Records are processed in
// source order; one bad row never aborts the batch.
func (svc *Service) ApplyAttendance(ctx context.Context, records []Record, strategy Strategy, opts Options) (Summary, error) {
	roster, err := svc.cadets.Roster(ctx)
	if err != nil {
		return Summary{}, err
	}
	m := newMatcher(roster)
	overwrite := strategy == StrategyOverwrite
	title := opts.DefaultTitle
	if title == "" {
		title = "Training Day"
	}

	var summary Summary
	for _, rec := range records {
		if !rec.Valid() {
			summary.addError(rec, strings.Join(rec.Errors, "; "))
			continue
		}
		cdt, ok := m.match(rec)
		if !ok {
			// never fabricate a cadet from an attendance row
			summary.Skipped++
			continue
		}

		outcome, err := svc.grades.MarkAttendance(ctx, rec.Date, title, cdt.ID, rec.Status, overwrite)
		if err != nil {
			svc.logger.Warn("attendance import row failed", err, rec.Source)
			summary.addError(rec, err.Error())
			continue
		}
		switch outcome {
		case grading.OutcomeInserted:
			summary.Inserted++
		case grading.OutcomeUpdated:
			summary.Updated++
		default:
			summary.Skipped++
		}
	}
	return summary, nil
}

// ImportGrades commits a bulk period-score batch.
func (svc *Service) ImportGrades(ctx context.Context, data []byte, filename string) (Summary, error) {
	records, err := svc.Normalize(data, filename, DomainGrades, Options{})
	if err != nil {
		return Summary{}, err
	}
	return svc.ApplyGrades(ctx, records)
}

// ApplyGrades writes period scores. Only supplied columns are written;
// missing columns leave stored values untouched.
func (svc *Service) ApplyGrades(ctx context.Context, records []Record) (Summary, error) {
	roster, err := svc.cadets.Roster(ctx)
	if err != nil {
		return Summary{}, err
	}
	m := newMatcher(roster)

	var summary Summary
	for _, rec := range records {
		if !rec.Valid() {
			summary.addError(rec, strings.Join(rec.Errors, "; "))
			continue
		}
		cdt, ok := m.matchForGrades(rec)
		if !ok {
			summary.Skipped++
			continue
		}

		up := grading.UpdateGradeInputs{
			PrelimScore:  rec.PrelimScore.Ptr(),
			MidtermScore: rec.MidtermScore.Ptr(),
			FinalScore:   rec.FinalScore.Ptr(),
		}
		if _, err := svc.grades.SetGradeInputs(ctx, cdt.ID, up); err != nil {
			svc.logger.Warn("grade import row failed", err, rec.Source)
			summary.addError(rec, err.Error())
			continue
		}
		summary.Updated++
	}
	return summary, nil
}

// ImportLedger commits a bulk merit/demerit batch. Strictly additive:
// it appends entries and deltas, never replaces totals.
func (svc *Service) ImportLedger(ctx context.Context, data []byte, filename, issuedBy string) (Summary, error) {
	records, err := svc.Normalize(data, filename, DomainLedger, Options{})
	if err != nil {
		return Summary{}, err
	}
	return svc.ApplyLedger(ctx, records, issuedBy)
}

func (svc *Service) ApplyLedger(ctx context.Context, records []Record, issuedBy string) (Summary, error) {
	roster, err := svc.cadets.Roster(ctx)
	if err != nil {
		return Summary{}, err
	}
	m := newMatcher(roster)

	var summary Summary
	for _, rec := range records {
		if !rec.Valid() {
			summary.addError(rec, strings.Join(rec.Errors, "; "))
			continue
		}
		cdt, ok := m.match(rec)
		if !ok {
			summary.Skipped++
			continue
		}

		nle := grading.NewLedgerEntry{Type: rec.EntryType, Points: rec.Points, Reason: rec.Reason}
		if _, err := svc.grades.AddLedgerEntry(ctx, cdt.ID, nle, issuedBy); err != nil {
			svc.logger.Warn("ledger import row failed", err, rec.Source)
			summary.addError(rec, err.Error())
			continue
		}
		summary.Inserted++
	}
	return summary, nil
}

// ImportRoster commits a cadet roster batch. Unlike the other domains,
// this path may create cadets: rows are keyed on student number.
func (svc *Service) ImportRoster(ctx context.Context, data []byte, filename string, strategy Strategy) (Summary, error) {
	records, err := svc.Normalize(data, filename, DomainRoster, Options{})
	if err != nil {
		return Summary{}, err
	}
	return svc.ApplyRoster(ctx, records, strategy)
}

func (svc *Service) ApplyRoster(ctx context.Context, records []Record, strategy Strategy) (Summary, error) {
	var summary Summary
	for _, rec := range records {
		if !rec.Valid() {
			summary.addError(rec, strings.Join(rec.Errors, "; "))
			continue
		}

		existing, err := svc.cadets.GetByStudentNumber(ctx, rec.StudentNumber)
		switch err {
		case nil:
			if strategy != StrategyOverwrite {
				summary.Skipped++
				continue
			}
			up := cadet.UpdateCadet{
				FirstName: rec.FirstName,
				LastName:  rec.LastName,
				Email:     rec.Email,
				Username:  rec.Username,
				Company:   rec.Company,
				Platoon:   rec.Platoon,
				Course:    rec.Course,
			}
			if _, err = svc.cadets.Update(ctx, existing.ID, up); err != nil {
				svc.logger.Warn("roster import row failed", err, rec.Source)
				summary.addError(rec, err.Error())
				continue
			}
			summary.Updated++
		case cadet.ErrNotFound:
			nc := cadet.NewCadet{
				StudentNumber: rec.StudentNumber,
				FirstName:     rec.FirstName,
				LastName:      rec.LastName,
				Email:         rec.Email,
				Username:      rec.Username,
				Company:       rec.Company,
				Platoon:       rec.Platoon,
				Course:        rec.Course,
			}
			if _, err = svc.cadets.Create(ctx, nc); err != nil {
				svc.logger.Warn("roster import row failed", err, rec.Source)
				summary.addError(rec, err.Error())
				continue
			}
			summary.Inserted++
		default:
			summary.addError(rec, err.Error())
		}
	}
	return summary, nil
}
