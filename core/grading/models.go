package grading

import (
	"time"
)

// GradeStatus is the lifecycle status of a cadet's grade record.
type GradeStatus string

const (
	StatusActive     GradeStatus = "active"
	StatusIncomplete GradeStatus = "incomplete"
	StatusDropped    GradeStatus = "dropped"
	StatusDeferred   GradeStatus = "deferred"
)

var statusRemarks = map[GradeStatus]string{
	StatusIncomplete: "INC",
	StatusDropped:    "DRP",
	StatusDeferred:   "DEF",
}

// GradeRecord holds the admin-entered grade inputs for one cadet.
// It is the source of truth for totals; recomputation from raw attendance
// or ledger rows is informational only once the record exists.
type GradeRecord struct {
	ID                  string      `json:"id"`
	CadetID             string      `json:"cadet_id"`
	AttendancePresent   int         `json:"attendance_present"`
	MeritPoints         int         `json:"merit_points"`
	DemeritPoints       int         `json:"demerit_points"`
	LifetimeMeritPoints int         `json:"lifetime_merit_points"` // never decreases
	PrelimScore         float64     `json:"prelim_score"`
	MidtermScore        float64     `json:"midterm_score"`
	FinalScore          float64     `json:"final_score"`
	Status              GradeStatus `json:"status"`
	CreatedAt           time.Time   `json:"created_at"` // UTC
	UpdatedAt           time.Time   `json:"updated_at"` // UTC
}

// EntryType discriminates ledger entries.
type EntryType string

const (
	EntryMerit   EntryType = "merit"
	EntryDemerit EntryType = "demerit"
)

// LedgerEntry is one signed merit/demerit point adjustment. Entries are
// append-only; a deletion must reverse the point effect on the grade
// record in the same transaction.
type LedgerEntry struct {
	ID      string    `json:"id"`
	CadetID string    `json:"cadet_id"`
	Type    EntryType `json:"type"`
	Points  int       `json:"points"` // positive magnitude
	Reason  string    `json:"reason"`
	// IssuedBy is the issuer's display name, resolved once at write time.
	IssuedBy  string    `json:"issued_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// TrainingDay is one formation/session on a calendar date.
type TrainingDay struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"` // truncated to calendar day, UTC
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceStatus enumerates attendance record states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// ValidAttendanceStatus reports whether s is a known status.
func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// AttendanceRecord is unique on (TrainingDayID, CadetID); it is an upsert
// target, never duplicated.
type AttendanceRecord struct {
	ID            string           `json:"id"`
	TrainingDayID string           `json:"training_day_id"`
	CadetID       string           `json:"cadet_id"`
	Status        AttendanceStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewLedgerEntry is the payload for adding a ledger entry.
type NewLedgerEntry struct {
	Type   EntryType `json:"type" validate:"required,oneof=merit demerit"`
	Points int       `json:"points" validate:"required,gt=0"`
	Reason string    `json:"reason" validate:"required"`
}

// UpdateGradeInputs is the admin direct-edit payload. Nil fields are left
// untouched.
type UpdateGradeInputs struct {
	AttendancePresent *int         `json:"attendance_present" validate:"omitempty,gte=0"`
	PrelimScore       *float64     `json:"prelim_score" validate:"omitempty,gte=0,lte=100"`
	MidtermScore      *float64     `json:"midterm_score" validate:"omitempty,gte=0,lte=100"`
	FinalScore        *float64     `json:"final_score" validate:"omitempty,gte=0,lte=100"`
	Status            *GradeStatus `json:"status" validate:"omitempty,oneof=active incomplete dropped deferred"`
}
