package importer

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

// Strategy decides what happens when an import row targets an existing record.
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
)

// Record is the normalized output of file parsing. It is transient:
// consumed once by the applier, never persisted. Only the fields relevant
// to the target domain are populated.
type Record struct {
	Row int `json:"row"` // 1-based source row, header excluded

	StudentNumber string `json:"student_number,omitempty"`
	Name          string `json:"name,omitempty"` // "First Last"
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Email         string `json:"email,omitempty"`
	Username      string `json:"username,omitempty"`
	Company       string `json:"company,omitempty"`
	Platoon       string `json:"platoon,omitempty"`
	Course        string `json:"course,omitempty"`

	// attendance
	Date   time.Time                `json:"date,omitempty"`
	Status grading.AttendanceStatus `json:"status,omitempty"`

	// grades; invalid null values mean "not supplied", and existing stored
	// scores are left untouched
	PrelimScore  null.Float64 `json:"prelim_score,omitempty"`
	MidtermScore null.Float64 `json:"midterm_score,omitempty"`
	FinalScore   null.Float64 `json:"final_score,omitempty"`

	// ledger
	EntryType grading.EntryType `json:"entry_type,omitempty"`
	Points    int               `json:"points,omitempty"`
	Reason    string            `json:"reason,omitempty"`

	Source           string   `json:"source,omitempty"` // rendered source row, for diagnostics
	Errors           []string `json:"errors,omitempty"`
	DuplicateInBatch bool     `json:"is_duplicate_in_batch"`
	// MatchedCadetID is filled on dry-run so a reviewer can see how each
	// record resolved.
	MatchedCadetID string `json:"matched_cadet_id,omitempty"`
}

// Valid reports whether the record passed normalization-time validation.
func (r Record) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Record) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Summary is the structured result of one batch operation. Callers always
// get a Summary for partial failures; only total parse failure surfaces
// as a hard error.
type Summary struct {
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details,omitempty"`

	// Records is populated on validate-only (dry-run) calls so a reviewer
	// can approve before committing.
	Records []Record `json:"records,omitempty"`
}

func (s *Summary) addError(rec Record, msg string) {
	s.Errors++
	detail := fmt.Sprintf("row %d: %s", rec.Row, msg)
	if rec.Source != "" {
		detail += " [" + rec.Source + "]"
	}
	s.ErrorDetails = append(s.ErrorDetails, detail)
}
