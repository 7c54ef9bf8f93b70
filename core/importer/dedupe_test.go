package importer

import (
	"testing"
	"time"
)

func TestFlagDuplicates(t *testing.T) {
	now := time.Date(2025, 7, 12, 10, 0, 0, 0, time.UTC)
	day1 := date(2025, 7, 12)
	day2 := date(2025, 7, 19)

	records := []Record{
		{Row: 1, StudentNumber: "2021-001", Date: day1},
		{Row: 2, StudentNumber: "2021-001", Date: day1}, // same number, same day
		{Row: 3, StudentNumber: "2021-001", Date: day2}, // same number, other day
		{Row: 4, Name: "Juan Santos", Date: day1},
		{Row: 5, Name: "juan  santos", Date: day1}, // name dupes ignore case and spacing
		{Row: 6, Name: "Ana Reyes", Date: day1},
		{Row: 7, StudentNumber: "2021-002"}, // dateless rows key on "today"
		{Row: 8, StudentNumber: "2021-002"},
	}

	flagDuplicates(records, now)

	want := []bool{true, true, false, true, true, false, true, true}
	for i, rec := range records {
		if rec.DuplicateInBatch != want[i] {
			t.Errorf("records[%d].DuplicateInBatch = %v, want %v", i, rec.DuplicateInBatch, want[i])
		}
	}
}
