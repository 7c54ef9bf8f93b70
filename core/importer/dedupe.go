package importer

import (
	"time"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

// duplicateKey identifies a record within a batch: external identity when
// present, else the normalized name, plus the calendar day ("today" when
// the record has no date).
func duplicateKey(rec Record, now time.Time) string {
	identity := rec.StudentNumber
	if identity == "" {
		identity = core.CleanString(core.CollapseSpaces(rec.Name), true /* lower */)
	}
	day := rec.Date
	if day.IsZero() {
		day = now
	}
	return identity + "|" + grading.Day(day).Format("2006-01-02")
}

// flagDuplicates marks every record whose (identity, day) key occurs more
// than once in the batch. Advisory only: records are never removed, and
// source order decides which occurrence is "first". The caller chooses the
// policy.
func flagDuplicates(records []Record, now time.Time) {
	counts := make(map[string]int, len(records))
	for _, rec := range records {
		counts[duplicateKey(rec, now)]++
	}
	for i := range records {
		if counts[duplicateKey(records[i], now)] > 1 {
			records[i].DuplicateInBatch = true
		}
	}
}
