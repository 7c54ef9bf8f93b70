package importer

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseFile(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		wantRows int
		wantErr  error
	}{
		{
			name:     "csv",
			data:     "Student Number,Status\n2021-001,P\n2021-002,A\n",
			filename: "a.csv",
			wantRows: 2,
		},
		{
			name:     "tab delimited by sniffing the header",
			data:     "Student Number\tStatus\n2021-001\tP\n",
			filename: "a.txt",
			wantRows: 1,
		},
		{
			name:     "json array",
			data:     `[{"Student Number": "2021-001", "Points": 5}]`,
			filename: "a.json",
			wantRows: 1,
		},
		{
			name:     "json records wrapper",
			data:     `{"records": [{"id": "2021-001"}, {"id": "2021-002"}]}`,
			filename: "a.json",
			wantRows: 2,
		},
		{
			name:     "empty file",
			data:     "",
			filename: "a.csv",
			wantErr:  ErrNoHeader,
		},
		{
			name:     "unsupported extension",
			data:     "whatever",
			filename: "a.docx",
			wantErr:  ErrUnsupportedFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := parseFile([]byte(tt.data), tt.filename)
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestParseFileNormalizesHeaders(t *testing.T) {
	rows, err := parseFile([]byte("Student ID,Full  Name\nsn-1,Juan Santos\n"), "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := rows[0].get(idAliases...); !ok || v != "sn-1" {
		t.Errorf("id lookup = (%q, %v)", v, ok)
	}
	if v, ok := rows[0].get(nameAliases...); !ok || v != "Juan Santos" {
		t.Errorf("name lookup = (%q, %v)", v, ok)
	}
}

func TestParseJSONValueStringification(t *testing.T) {
	data := `[{"points": 5, "present": true, "reason": null, "prelim": 88.5}]`
	rows, err := parseFile([]byte(data), "a.json")
	if err != nil {
		t.Fatal(err)
	}
	row := rows[0]
	if row["points"] != "5" {
		t.Errorf("points = %q", row["points"])
	}
	if row["present"] != "1" {
		t.Errorf("present = %q", row["present"])
	}
	if row["prelim"] != "88.5" {
		t.Errorf("prelim = %q", row["prelim"])
	}
	if v, ok := row.get("reason"); ok {
		t.Errorf("null value should read as absent, got %q", v)
	}
}
