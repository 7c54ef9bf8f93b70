package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

// Recognized header aliases, all pre-normalized with normalizeKey. ROTCMIS
// exports are wildly inconsistent about column naming.
var (
	idAliases        = []string{"student_number", "student_no", "student_id", "studentid", "id_number", "sn", "id"}
	nameAliases      = []string{"name", "full_name", "cadet_name", "student_name", "cadet"}
	firstNameAliases = []string{"first_name", "firstname", "given_name"}
	lastNameAliases  = []string{"last_name", "lastname", "surname", "family_name"}
	emailAliases     = []string{"email", "email_address", "e_mail"}
	usernameAliases  = []string{"username", "user_name", "login"}
	dateAliases      = []string{"date", "training_date", "session_date", "attendance_date", "day"}
	statusAliases    = []string{"status", "attendance", "attendance_status", "present"}
	prelimAliases    = []string{"prelim_score", "prelim", "prelims", "prelim_grade"}
	midtermAliases   = []string{"midterm_score", "midterm", "midterms", "midterm_grade"}
	finalAliases     = []string{"final_score", "final", "finals", "final_grade"}
	typeAliases      = []string{"type", "entry_type", "category"}
	pointsAliases    = []string{"points", "point", "amount"}
	reasonAliases    = []string{"reason", "remarks", "description"}
	companyAliases   = []string{"company", "coy"}
	platoonAliases   = []string{"platoon", "plt"}
	courseAliases    = []string{"course", "program"}
)

var nonKeyChars = regexp.MustCompile(`[^a-z0-9_]`)

// normalizeKey canonicalizes a header name: trim, lowercase, collapse
// internal whitespace to a single underscore, drop everything outside
// [a-z0-9_]. "Student ID", "student_id" and "STUDENT-ID " all collapse to
// "student_id".
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.Join(strings.Fields(key), "_")
	return nonKeyChars.ReplaceAllString(key, "")
}

var statusSynonyms = map[string]grading.AttendanceStatus{
	"p": grading.AttendancePresent, "present": grading.AttendancePresent,
	"1": grading.AttendancePresent, "yes": grading.AttendancePresent, "y": grading.AttendancePresent,
	"a": grading.AttendanceAbsent, "absent": grading.AttendanceAbsent,
	"0": grading.AttendanceAbsent, "no": grading.AttendanceAbsent, "n": grading.AttendanceAbsent,
	"l": grading.AttendanceLate, "late": grading.AttendanceLate,
	"e": grading.AttendanceExcused, "excused": grading.AttendanceExcused,
}

func parseStatus(s string) (grading.AttendanceStatus, bool) {
	status, ok := statusSynonyms[core.CleanString(s, true /* lower */)]
	return status, ok
}

var nativeDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseDate tries native layouts first, then slash formats. Slash dates are
// read as M/D/Y unless the first component cannot be a month.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range nativeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return grading.Day(t), true
		}
	}

	// strip a trailing time component before slash parsing
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	a, err1 := strconv.Atoi(parts[0])
	b, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	month, day := a, b
	if a > 12 && b <= 12 { // unambiguously day-first
		month, day = b, a
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// parseName normalizes a full name to "First Last" and returns the split
// parts. Supports "Last, First" and "First Last" (last token as surname).
func parseName(s string) (full, first, last string) {
	s = core.CollapseSpaces(s)
	if s == "" {
		return "", "", ""
	}
	if i := strings.Index(s, ","); i >= 0 {
		last = strings.TrimSpace(s[:i])
		first = strings.TrimSpace(s[i+1:])
	} else {
		fields := strings.Fields(s)
		if len(fields) == 1 {
			first = fields[0]
		} else {
			first = strings.Join(fields[:len(fields)-1], " ")
			last = fields[len(fields)-1]
		}
	}
	full = strings.TrimSpace(first + " " + last)
	return full, first, last
}

// Options tweak normalization for a batch.
type Options struct {
	// DefaultDate fills records whose source row carries no date. PDF
	// rosters never carry one; the operator picks the training day at
	// upload time.
	DefaultDate time.Time
	// DefaultTitle names a training day created by the batch.
	DefaultTitle string
}

func normalizeIdentity(row rawRow, rec *Record) {
	if sn, ok := row.get(idAliases...); ok {
		rec.StudentNumber = core.CleanString(sn, true /* lower */)
	}
	if email, ok := row.get(emailAliases...); ok {
		rec.Email = core.CleanString(email, true)
	}
	if uname, ok := row.get(usernameAliases...); ok {
		rec.Username = core.CleanString(uname, true)
	}

	if name, ok := row.get(nameAliases...); ok {
		rec.Name, rec.FirstName, rec.LastName = parseName(name)
	} else {
		first, _ := row.get(firstNameAliases...)
		last, _ := row.get(lastNameAliases...)
		if first != "" || last != "" {
			rec.FirstName = core.CollapseSpaces(first)
			rec.LastName = core.CollapseSpaces(last)
			rec.Name = strings.TrimSpace(rec.FirstName + " " + rec.LastName)
		}
	}
}

// normalizeAttendance converts raw rows into attendance records. A record
// is valid with (identity OR name) AND date AND status; failures are
// accumulated per record, never dropped.
func normalizeAttendance(rows []rawRow, opts Options) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{Row: i + 1, Source: row.render()}
		normalizeIdentity(row, &rec)
		if rec.StudentNumber == "" && rec.Name == "" {
			rec.addError("missing student number or name")
		}

		if raw, ok := row.get(dateAliases...); ok {
			if date, ok := parseDate(raw); ok {
				rec.Date = date
			} else {
				rec.addError("unrecognized date: " + raw)
			}
		} else if !opts.DefaultDate.IsZero() {
			rec.Date = grading.Day(opts.DefaultDate)
		} else {
			rec.addError("missing date")
		}

		if raw, ok := row.get(statusAliases...); ok {
			if status, ok := parseStatus(raw); ok {
				rec.Status = status
			} else {
				rec.addError("unrecognized status: " + raw)
			}
		} else {
			rec.addError("missing status")
		}

		records = append(records, rec)
	}
	return records
}

// normalizeGrades converts raw rows into period score records. Missing
// score columns stay null: a partial-column import must not zero out
// unlisted columns.
func normalizeGrades(rows []rawRow) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{Row: i + 1, Source: row.render()}
		normalizeIdentity(row, &rec)
		if rec.StudentNumber == "" && rec.Email == "" && rec.Username == "" && rec.Name == "" {
			rec.addError("missing student number or name")
		}

		rec.PrelimScore = parseScore(row, &rec, prelimAliases)
		rec.MidtermScore = parseScore(row, &rec, midtermAliases)
		rec.FinalScore = parseScore(row, &rec, finalAliases)
		if !rec.PrelimScore.Valid && !rec.MidtermScore.Valid && !rec.FinalScore.Valid {
			rec.addError("no score columns supplied")
		}

		records = append(records, rec)
	}
	return records
}

func parseScore(row rawRow, rec *Record, aliases []string) null.Float64 {
	raw, ok := row.get(aliases...)
	if !ok {
		return null.Float64{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		rec.addError("unrecognized score: " + raw)
		return null.Float64{}
	}
	// clamp into [0,100]
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	return null.Float64From(v)
}

// normalizeLedger converts raw rows into merit/demerit entries.
func normalizeLedger(rows []rawRow) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{Row: i + 1, Source: row.render()}
		normalizeIdentity(row, &rec)
		if rec.StudentNumber == "" && rec.Name == "" {
			rec.addError("missing student number or name")
		}

		if raw, ok := row.get(typeAliases...); ok {
			switch core.CleanString(raw, true) {
			case "merit", "m", "+":
				rec.EntryType = grading.EntryMerit
			case "demerit", "d", "-":
				rec.EntryType = grading.EntryDemerit
			default:
				rec.addError("unrecognized entry type: " + raw)
			}
		} else {
			rec.addError("missing entry type")
		}

		if raw, ok := row.get(pointsAliases...); ok {
			points, err := strconv.Atoi(raw)
			if err != nil || points <= 0 {
				rec.addError("points must be a positive whole number: " + raw)
			} else {
				rec.Points = points
			}
		} else {
			rec.addError("missing points")
		}

		if reason, ok := row.get(reasonAliases...); ok {
			rec.Reason = reason
		} else {
			rec.Reason = "bulk import"
		}

		records = append(records, rec)
	}
	return records
}

// normalizeRoster converts raw rows into cadet roster records.
func normalizeRoster(rows []rawRow) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{Row: i + 1, Source: row.render()}
		normalizeIdentity(row, &rec)
		if rec.StudentNumber == "" {
			rec.addError("missing student number")
		}
		if rec.FirstName == "" && rec.LastName == "" {
			rec.addError("missing name")
		}
		if v, ok := row.get(companyAliases...); ok {
			rec.Company = v
		}
		if v, ok := row.get(platoonAliases...); ok {
			rec.Platoon = v
		}
		if v, ok := row.get(courseAliases...); ok {
			rec.Course = v
		}
		records = append(records, rec)
	}
	return records
}

var (
	pdfStatusKeywords = []string{"present", "absent", "excused", "late"}
	leadingNumbering  = regexp.MustCompile(`^\d+[.)]?\s*`)
)

// normalizePDF scans extracted PDF text lines for a status keyword and
// derives the cadet name from the text preceding it. Lines without a
// recognizable status produce no record. PDF rosters carry no student
// numbers; matching falls back to fuzzy names.
func normalizePDF(lines []string, opts Options) []Record {
	var records []Record
	for _, line := range lines {
		lower := strings.ToLower(line)

		var keyword string
		var idx int = -1
		for _, kw := range pdfStatusKeywords {
			if i := strings.Index(lower, kw); i > 0 && (idx == -1 || i < idx) {
				idx, keyword = i, kw
			}
		}
		if idx <= 0 {
			continue
		}

		name := strings.TrimSpace(line[:idx])
		name = leadingNumbering.ReplaceAllString(name, "")
		// a trailing short token with no spaces is the generated username
		if fields := strings.Fields(name); len(fields) > 2 {
			if tail := fields[len(fields)-1]; len(tail) <= 12 && !strings.Contains(tail, ",") && strings.ToLower(tail) == tail {
				name = strings.Join(fields[:len(fields)-1], " ")
			}
		}
		if name == "" {
			continue
		}

		rec := Record{Row: len(records) + 1, Source: line}
		rec.Name, rec.FirstName, rec.LastName = parseName(name)
		if status, ok := parseStatus(keyword); ok {
			rec.Status = status
		}
		if !opts.DefaultDate.IsZero() {
			rec.Date = grading.Day(opts.DefaultDate)
		} else {
			rec.addError("missing date")
		}
		records = append(records, rec)
	}
	return records
}
