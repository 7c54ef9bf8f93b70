package sqlxrepos

import (
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
)

const migrationFile = "../migrations/00001_initial_schema.sql"

// tableColumns parses the column names of every CREATE TABLE block in the
// initial migration.
func tableColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()
	raw, err := os.ReadFile(migrationFile)
	if err != nil {
		t.Fatal(err)
	}

	tables := make(map[string]map[string]bool)
	re := regexp.MustCompile(`(?s)CREATE TABLE (\w+) \((.*?)\n\);`)
	for _, m := range re.FindAllStringSubmatch(string(raw), -1) {
		cols := make(map[string]bool)
		for _, line := range strings.Split(m[2], "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			switch strings.ToUpper(fields[0]) {
			case "UNIQUE", "PRIMARY", "FOREIGN", "CHECK", "CONSTRAINT":
				continue
			}
			cols[fields[0]] = true
		}
		tables[m[1]] = cols
	}
	if len(tables) == 0 {
		t.Fatalf("no tables parsed from %s", migrationFile)
	}
	return tables
}

// Every db struct tag must name a real column; SELECT * scans fail on any
// column the row struct cannot map.
func TestRowStructsMatchSchema(t *testing.T) {
	tables := tableColumns(t)
	rows := map[string]interface{}{
		"cadets":             cadetRow{},
		"staff":              staffRow{},
		"grades":             gradeRow{},
		"merit_demerit_logs": ledgerRow{},
		"training_days":      trainingDayRow{},
		"attendance_records": attendanceRow{},
	}
	for table, row := range rows {
		cols, ok := tables[table]
		if !ok {
			t.Errorf("migration defines no table %q", table)
			continue
		}
		typ := reflect.TypeOf(row)
		if typ.NumField() != len(cols) {
			t.Errorf("%s: row struct has %d fields, table has %d columns", table, typ.NumField(), len(cols))
		}
		for i := 0; i < typ.NumField(); i++ {
			tag := typ.Field(i).Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			if !cols[tag] {
				t.Errorf("%s.%s: db tag %q names no column in the migration", table, typ.Field(i).Name, tag)
			}
		}
	}
}

// Every INSERT in this package must name only columns the migration creates.
func TestInsertStatementsMatchSchema(t *testing.T) {
	tables := tableColumns(t)
	sources, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}

	re := regexp.MustCompile(`(?s)INSERT INTO (\w+) \(([^)]+)\)`)
	var checked int
	for _, src := range sources {
		if strings.HasSuffix(src, "_test.go") {
			continue
		}
		raw, err := os.ReadFile(src)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range re.FindAllStringSubmatch(string(raw), -1) {
			checked++
			cols, ok := tables[m[1]]
			if !ok {
				t.Errorf("%s: INSERT INTO unknown table %q", src, m[1])
				continue
			}
			for _, col := range strings.Split(m[2], ",") {
				col = strings.TrimSpace(col)
				if !cols[col] {
					t.Errorf("%s: INSERT INTO %s names unknown column %q", src, m[1], col)
				}
			}
		}
	}
	if checked == 0 {
		t.Fatal("found no INSERT statements to check")
	}
}
