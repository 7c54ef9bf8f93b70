package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// maxRows bounds work per file; ROTCMIS exports never come close, so
// anything beyond this is a malformed or hostile file.
const maxRows = 10000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeader          = errors.New("file has no header row")
)

// rawRow is a parsed source row keyed by normalized header name. It never
// leaves this package: normalization converts it into a typed Record.
type rawRow map[string]string

func (r rawRow) get(aliases ...string) (string, bool) {
	for _, key := range aliases {
		if v, ok := r[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (r rawRow) render() string {
	parts := make([]string, 0, len(r))
	for k, v := range r {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ", ")
}

// parseFile dispatches on the declared filename extension and returns the
// file's data rows keyed by normalized header. PDF files go through
// parsePDFLines instead; see normalizePDF.
func parseFile(data []byte, filename string) ([]rawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return parseDelimited(data)
	case ".xlsx", ".xls", ".xlsm":
		return parseWorkbook(data)
	case ".json":
		return parseJSON(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "parsing %q", filename)
	}
}

func parseDelimited(data []byte) ([]rawRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are common in ROTCMIS exports
	if bytes.ContainsRune(bytes.SplitN(data, []byte("\n"), 2)[0], '\t') {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header row")
	}
	keys := normalizeHeader(header)

	var rows []rawRow
	for len(rows) < maxRows {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading delimited row")
		}
		rows = append(rows, zipRow(keys, fields))
	}
	return rows, nil
}

func parseWorkbook(data []byte) ([]rawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(cells) == 0 {
		return nil, ErrNoHeader
	}

	keys := normalizeHeader(cells[0])
	body := cells[1:]
	if len(body) > maxRows {
		body = body[:maxRows]
	}
	rows := make([]rawRow, 0, len(body))
	for _, fields := range body {
		rows = append(rows, zipRow(keys, fields))
	}
	return rows, nil
}

// parseJSON accepts either a top-level array or {"records": [...]}.
func parseJSON(data []byte) ([]rawRow, error) {
	var objs []map[string]interface{}
	if err := json.Unmarshal(data, &objs); err != nil {
		var wrapper struct {
			Records []map[string]interface{} `json:"records"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil || wrapper.Records == nil {
			return nil, errors.Wrap(err, "decoding JSON records")
		}
		objs = wrapper.Records
	}
	if len(objs) > maxRows {
		objs = objs[:maxRows]
	}

	rows := make([]rawRow, 0, len(objs))
	for _, obj := range objs {
		row := make(rawRow, len(obj))
		for k, v := range obj {
			row[normalizeKey(k)] = stringifyJSONValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringifyJSONValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		// drop the trailing .0 json decoding adds to integers
		b, _ := json.Marshal(t)
		return string(b)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// parsePDFLines extracts the plain text of a PDF and returns its non-empty
// lines. The caller scans each line for a status keyword (normalizePDF).
func parsePDFLines(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening PDF")
	}
	textReader, err := r.GetPlainText()
	if err != nil {
		return nil, errors.Wrap(err, "extracting PDF text")
	}
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, textReader); err != nil {
		return nil, errors.Wrap(err, "reading PDF text")
	}

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
		if len(lines) >= maxRows {
			break
		}
	}
	return lines, nil
}

func normalizeHeader(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeKey(h)
	}
	return keys
}

func zipRow(keys, fields []string) rawRow {
	row := make(rawRow, len(keys))
	for i, key := range keys {
		if key == "" || i >= len(fields) {
			continue
		}
		row[key] = strings.TrimSpace(fields[i])
	}
	return row
}
