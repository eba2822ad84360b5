package core

// source.go reads a tabular document into a single-pass sequence of rows.
//
// Two formats are accepted and told apart by their leading bytes:
//
//   - XLSX workbooks (ZIP container), read with excelize's row iterator. Cell
//     values are read raw so date cells arrive as serial numbers instead of
//     locale-formatted strings.
//   - Delimited text (CSV), read with encoding/csv after BOM removal and
//     UTF-8 sanitisation.
//
// Legacy binary .xls files and other binary input are rejected with a
// SourceFormatError. A missing named table is a TableNotFoundError.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultHeaderSearchRows is how many leading rows are scanned for the header.
const DefaultHeaderSearchRows = 20

// minHeaderFields is how many recognised columns make a row a header.
const minHeaderFields = 2

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Source formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// SourceFormatError reports a document that cannot be read as a table.
type SourceFormatError struct {
	Reason string
	Err    error
}

func (e *SourceFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid source: %s: %v", e.Reason, e.Err)
	}
	return "invalid source: " + e.Reason
}

func (e *SourceFormatError) Unwrap() error { return e.Err }

// TableNotFoundError reports a requested sheet that the workbook lacks.
type TableNotFoundError struct {
	Name      string
	Available []string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table not found: %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// SourceOptions controls table lookup and header detection.
type SourceOptions struct {
	DefaultSheet     string     // Used when no table is named; first sheet if absent
	HeaderSearchRows int        // Leading rows scanned for the header
	Headers          *HeaderMap // Synonym table; defaults only if nil
}

func (o SourceOptions) withDefaults() SourceOptions {
	if o.HeaderSearchRows <= 0 {
		o.HeaderSearchRows = DefaultHeaderSearchRows
	}
	if o.Headers == nil {
		o.Headers = MustHeaderMap(nil)
	}
	return o
}

// ReadSource reads the whole document, failing if it exceeds limit bytes.
func ReadSource(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &SourceFormatError{Reason: "read failed", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &SourceFormatError{Reason: fmt.Sprintf("file too large: exceeds %d bytes", limit)}
	}
	return data, nil
}

// Table is a located table with a mapped header. Rows are produced once, in
// order, by Next.
type Table struct {
	Name    string
	Format  string
	Headers []string

	fields   []Field
	serial   bool
	next     func() ([]string, error)
	closer   func() error
	buffered [][]string
	index    int
}

// OpenTable locates the table in data and reads its header row. name selects
// a workbook sheet case-insensitively. CSV input holds one table named "csv";
// any other name is a TableNotFoundError.
func OpenTable(data []byte, name string, opts SourceOptions) (*Table, error) {
	opts = opts.withDefaults()

	var (
		t   *Table
		err error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		t, err = openWorkbook(data, name, opts.DefaultSheet)
	case bytes.HasPrefix(data, oleMagic):
		return nil, &SourceFormatError{Reason: "legacy .xls workbooks are not supported, save as .xlsx or .csv"}
	case looksBinary(data):
		return nil, &SourceFormatError{Reason: "not a spreadsheet or CSV document"}
	default:
		if n := strings.TrimSpace(name); n != "" && !strings.EqualFold(n, FormatCSV) {
			return nil, &TableNotFoundError{Name: name, Available: []string{FormatCSV}}
		}
		t = openCSV(data)
	}
	if err != nil {
		return nil, err
	}

	if err := t.locateHeader(opts.Headers, opts.HeaderSearchRows); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func openWorkbook(data []byte, name, defaultSheet string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &SourceFormatError{Reason: "unreadable workbook", Err: err}
	}

	sheet, err := pickSheet(f.GetSheetList(), name, defaultSheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, &SourceFormatError{Reason: fmt.Sprintf("unreadable sheet %q", sheet), Err: err}
	}

	return &Table{
		Name:   sheet,
		Format: FormatXLSX,
		serial: true,
		next: func() ([]string, error) {
			if !rows.Next() {
				if err := rows.Error(); err != nil {
					return nil, &SourceFormatError{Reason: "unreadable row", Err: err}
				}
				return nil, io.EOF
			}
			cols, err := rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				return nil, &SourceFormatError{Reason: "unreadable row", Err: err}
			}
			return cols, nil
		},
		closer: func() error {
			return errors.Join(rows.Close(), f.Close())
		},
	}, nil
}

func openCSV(data []byte) *Table {
	r := csv.NewReader(bytes.NewReader(sanitizeText(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	return &Table{
		Name:   FormatCSV,
		Format: FormatCSV,
		next: func() ([]string, error) {
			rec, err := r.Read()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, &SourceFormatError{Reason: "malformed CSV", Err: err}
			}
			return rec, nil
		},
	}
}

// pickSheet returns the explicitly named sheet, else the default sheet if
// present, else the first sheet.
func pickSheet(sheets []string, name, defaultSheet string) (string, error) {
	find := func(want string) (string, bool) {
		want = strings.TrimSpace(want)
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), want) {
				return s, true
			}
		}
		return "", false
	}

	if strings.TrimSpace(name) != "" {
		if s, ok := find(name); ok {
			return s, nil
		}
		return "", &TableNotFoundError{Name: name, Available: sheets}
	}
	if defaultSheet != "" {
		if s, ok := find(defaultSheet); ok {
			return s, nil
		}
	}
	if len(sheets) == 0 {
		return "", &TableNotFoundError{Name: defaultSheet}
	}
	return sheets[0], nil
}

// locateHeader scans leading rows for the header: the first row with at
// least minHeaderFields recognised columns, else the first non-blank row.
// Rows after the header stay buffered for Next.
func (t *Table) locateHeader(headers *HeaderMap, limit int) error {
	var scanned [][]string
	fallback := -1

	for {
		if len(scanned) >= limit && fallback >= 0 {
			break
		}
		row, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		scanned = append(scanned, row)
		if isBlankRow(row) {
			continue
		}
		if fallback < 0 {
			fallback = len(scanned) - 1
		}
		if countFields(headers.Map(row)) >= minHeaderFields {
			t.setHeader(headers, scanned, len(scanned)-1)
			return nil
		}
	}

	if fallback >= 0 {
		t.setHeader(headers, scanned, fallback)
	}
	return nil
}

func (t *Table) setHeader(headers *HeaderMap, scanned [][]string, at int) {
	t.Headers = scanned[at]
	t.fields = headers.Map(t.Headers)
	t.buffered = scanned[at+1:]
}

// Fields returns the canonical field of each header column.
func (t *Table) Fields() []Field {
	return t.fields
}

// Next returns the next non-blank data row, or io.EOF when the table is
// exhausted. Blank rows are skipped but still count toward row indexes.
func (t *Table) Next() (RawRow, error) {
	for {
		row, err := t.pull()
		if err != nil {
			return RawRow{}, err
		}
		t.index++
		if isBlankRow(row) {
			continue
		}
		return t.rawRow(row), nil
	}
}

func (t *Table) pull() ([]string, error) {
	if t.Headers == nil {
		return nil, io.EOF
	}
	if len(t.buffered) > 0 {
		row := t.buffered[0]
		t.buffered = t.buffered[1:]
		return row, nil
	}
	return t.next()
}

func (t *Table) rawRow(row []string) RawRow {
	cells := make([]Cell, len(t.Headers))
	for i, label := range t.Headers {
		var v string
		if i < len(row) {
			v = row[i]
		}
		cells[i] = Cell{Label: label, Field: t.fields[i], Value: v}
	}
	return RawRow{Index: t.index, Cells: cells, SerialDates: t.serial}
}

// Close releases the underlying workbook, if any.
func (t *Table) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer()
	t.closer = nil
	return err
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

func countFields(fields []Field) int {
	n := 0
	for _, f := range fields {
		if f != "" {
			n++
		}
	}
	return n
}
