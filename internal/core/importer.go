package core

// importer.go runs the detect-and-import pass.
//
// Pipeline per invocation:
//  1. Read: locate the table and its header (source.go)
//  2. Validate: each row becomes a BookingRecord or a set of errors
//  3. Resolve: the property name becomes a PropertyID
//  4. Detect: overlapping bookings of the same property are looked up
//  5. Commit: rows without overlaps are created, one repository call each
//
// Rows with overlaps are never written here. They come back as conflicts plus
// a pending candidate that ResolveConflicts accepts later.
//
// The whole table is read before any row is committed, so an unreadable
// source never leaves partial writes behind. Commits are per row: a failure
// on row 7 does not undo rows 1-6.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aristay/bookingimport/internal/logging"
)

// ImporterOptions configures source reading and validation.
type ImporterOptions struct {
	Source      SourceOptions
	DateLayouts []string
}

// Importer is the import orchestrator.
type Importer struct {
	dir       PropertyDirectory
	repo      BookingRepository
	source    SourceOptions
	validator *RowValidator
	detector  *ConflictDetector
}

// NewImporter creates an importer over the given collaborators.
func NewImporter(dir PropertyDirectory, repo BookingRepository, opts ImporterOptions) *Importer {
	return &Importer{
		dir:       dir,
		repo:      repo,
		source:    opts.Source.withDefaults(),
		validator: NewRowValidator(opts.DateLayouts),
		detector:  NewConflictDetector(repo),
	}
}

// ImportRequest is the input of DetectAndImport.
type ImportRequest struct {
	ImportID string // Copied into the report
	Data     []byte // Whole source document
	Sheet    string // Optional table name
	Property string // Optional property for rows that leave the column empty
	Actor    string // Recorded as created-by
}

// candidate is a validated row whose property has been resolved.
type candidate struct {
	key      string
	record   BookingRecord
	property PropertyID
}

// DetectAndImport imports every valid row that does not overlap an existing
// booking and reports the rest. The returned error is non-nil only when ctx
// ends mid-run; the report then covers the rows processed so far.
func (im *Importer) DetectAndImport(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	start := time.Now()
	report := newReport(req.ImportID, ModeDetect)
	defer func() {
		report.Duration = time.Since(start)
		report.finish()
	}()

	records, ok := im.load(req.Data, req.Sheet, req.Property, report)
	if !ok {
		return report, nil
	}

	resolver := NewPropertyResolver(im.dir)
	log := logging.WithFields(ctx, "import_id", req.ImportID, "mode", ModeDetect)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c, ok := im.resolve(ctx, resolver, rec, report)
		if !ok {
			continue
		}

		existing, err := im.detector.Overlapping(ctx, c.property, rec)
		if err != nil {
			report.addError(commitError(rec.RowIndex, err))
			report.FailedCount++
			continue
		}
		if len(existing) > 0 {
			report.hold(c, existing)
			continue
		}

		id, err := im.create(ctx, c, req.Actor)
		if err != nil {
			report.addError(commitError(rec.RowIndex, err))
			report.FailedCount++
			continue
		}
		report.ImportedCount++
		log.Debug("booking created", "row", rec.RowIndex, "booking_id", id, "property_id", c.property)
	}

	return report, nil
}

// load reads and validates the source. Rows with no property get property,
// when set. It returns false after a source-level failure, which is recorded
// on the report.
func (im *Importer) load(data []byte, sheet, property string, report *ImportReport) ([]BookingRecord, bool) {
	rows, name, err := im.readRows(data, sheet)
	report.Table = name
	if err != nil {
		var notFound *TableNotFoundError
		if errors.As(err, &notFound) {
			report.fail(KindTableNotFound, err.Error())
		} else {
			report.fail(KindSourceFormat, err.Error())
		}
		return nil, false
	}
	if len(rows) == 0 {
		report.fail(KindEmptySource, "the table has no data rows")
		return nil, false
	}

	report.TotalRows = len(rows)
	records := make([]BookingRecord, 0, len(rows))
	property = CleanCell(property)
	for _, row := range rows {
		if property != "" {
			row = row.withDefault(FieldPropertyName, property)
		}
		rec, errs := im.validator.ValidateRow(row)
		if len(errs) > 0 {
			report.Errors = append(report.Errors, errs...)
			continue
		}
		records = append(records, rec)
	}
	return records, true
}

func (im *Importer) readRows(data []byte, sheet string) ([]RawRow, string, error) {
	t, err := OpenTable(data, sheet, im.source)
	if err != nil {
		return nil, "", err
	}
	defer t.Close()

	var rows []RawRow
	for {
		row, err := t.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, t.Name, err
		}
		rows = append(rows, row)
	}
	return rows, t.Name, nil
}

func (im *Importer) resolve(ctx context.Context, r *PropertyResolver, rec BookingRecord, report *ImportReport) (candidate, bool) {
	id, ierr := r.Resolve(ctx, rec)
	if ierr != nil {
		report.addError(*ierr)
		return candidate{}, false
	}
	return candidate{key: CandidateKey(rec), record: rec, property: id}, true
}

func (im *Importer) create(ctx context.Context, c candidate, actor string) (BookingID, error) {
	return im.repo.Create(ctx, NewBooking{PropertyID: c.property, BookingFields: c.record.Fields()}, actor)
}

// hold records the conflicts of c and keeps it as a pending candidate.
func (r *ImportReport) hold(c candidate, existing []ExistingBooking) {
	r.Conflicts = append(r.Conflicts, conflictsFor(c.record, c.property, existing)...)
	r.Pending = append(r.Pending, PendingCandidate{Key: c.key, Record: c.record})
}

func commitError(row int, err error) ImportError {
	return ImportError{
		RowIndex: row,
		Message:  fmt.Sprintf("could not save booking: %v", err),
		Kind:     KindCommitFailed,
	}
}
