package core

// report.go defines the result of an import invocation.
//
// A report is assembled row by row and never aborts: every row ends up either
// committed (imported), discarded (skipped), failed at the repository, held
// back as a conflict, or rejected with one or more errors. Only source-level
// failures produce a report without row outcomes.

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire format for dates in reports and pending candidates.
const DateLayout = "2006-01-02"

// ErrorKind classifies an ImportError.
type ErrorKind string

const (
	KindMissingField      ErrorKind = "missing_field"
	KindBadType           ErrorKind = "bad_type"
	KindBadRange          ErrorKind = "bad_range"
	KindUnknownProperty   ErrorKind = "unknown_property"
	KindEmptySource       ErrorKind = "empty_source"
	KindSourceFormat      ErrorKind = "source_format"
	KindTableNotFound     ErrorKind = "table_not_found"
	KindCommitFailed      ErrorKind = "commit_failed"
	KindInvalidResolution ErrorKind = "invalid_resolution"
)

// ImportError is a single problem found while importing. RowIndex is 0 for
// problems that concern the whole source.
type ImportError struct {
	RowIndex int       `json:"row_index"`
	Field    Field     `json:"field,omitempty"`
	Message  string    `json:"message"`
	Kind     ErrorKind `json:"kind"`
}

func (e ImportError) Error() string {
	switch {
	case e.RowIndex > 0 && e.Field != "":
		return fmt.Sprintf("row %d: %s: %s", e.RowIndex, e.Field, e.Message)
	case e.RowIndex > 0:
		return fmt.Sprintf("row %d: %s", e.RowIndex, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Conflict describes one overlap between a candidate row and an existing
// booking. A candidate overlapping several bookings yields several conflicts
// sharing the same CandidateKey, each with its own Key.
type Conflict struct {
	Key               string     `json:"key"`
	CandidateKey      string     `json:"candidate_key"`
	RowIndex          int        `json:"row_index"`
	PropertyID        PropertyID `json:"property_id"`
	CandidateDates    DateRange  `json:"candidate_dates"`
	ExistingBookingID BookingID  `json:"existing_booking_id"`
	ExistingDates     DateRange  `json:"existing_dates"`
	ExistingGuest     string     `json:"existing_guest"`
}

// Mode names the entry point that produced a report.
type Mode string

const (
	ModeDetect  Mode = "detect"
	ModeResolve Mode = "resolve"
)

// Action is an operator decision for a conflict.
type Action string

const (
	ActionOverwrite Action = "overwrite"
	ActionSkip      Action = "skip"
)

// Valid reports whether the action is supported. Merging fields is not.
func (a Action) Valid() bool {
	return a == ActionOverwrite || a == ActionSkip
}

// Resolutions maps conflict keys (Conflict.Key) to decisions.
type Resolutions map[string]Action

// PendingCandidate is a conflicting record carried between the detect and
// resolve calls, so resolve can run without re-uploading the file. Key is
// the record's CandidateKey.
type PendingCandidate struct {
	Key    string        `json:"key" validate:"required"`
	Record BookingRecord `json:"record"`
}

// ImportReport is the outcome of one import invocation.
type ImportReport struct {
	ImportID      string             `json:"import_id"`
	Mode          Mode               `json:"mode"`
	Table         string             `json:"table,omitempty"`
	Success       bool               `json:"success"`
	TotalRows     int                `json:"total_rows"`
	ImportedCount int                `json:"imported_count"`
	SkippedCount  int                `json:"skipped_count"`
	FailedCount   int                `json:"failed_count"`
	Errors        []ImportError      `json:"errors"`
	Conflicts     []Conflict         `json:"conflicts"`
	Pending       []PendingCandidate `json:"pending,omitempty"`
	Duration      time.Duration      `json:"-"`
}

func newReport(id string, mode Mode) *ImportReport {
	return &ImportReport{
		ImportID:  id,
		Mode:      mode,
		Errors:    []ImportError{},
		Conflicts: []Conflict{},
	}
}

func (r *ImportReport) addError(e ImportError) {
	r.Errors = append(r.Errors, e)
}

// fail records a source-level failure. Nothing is imported in that case.
func (r *ImportReport) fail(kind ErrorKind, msg string) {
	r.addError(ImportError{Kind: kind, Message: msg})
}

// UnresolvedRows returns the number of distinct rows held back by conflicts.
func (r *ImportReport) UnresolvedRows() int {
	seen := make(map[int]struct{}, len(r.Conflicts))
	for _, c := range r.Conflicts {
		seen[c.RowIndex] = struct{}{}
	}
	return len(seen)
}

// finish sorts errors and conflicts by row and computes Success.
func (r *ImportReport) finish() {
	sort.SliceStable(r.Errors, func(i, j int) bool {
		return r.Errors[i].RowIndex < r.Errors[j].RowIndex
	})
	sort.SliceStable(r.Conflicts, func(i, j int) bool {
		return r.Conflicts[i].RowIndex < r.Conflicts[j].RowIndex
	})
	r.Success = len(r.Errors) == 0 && len(r.Conflicts) == 0
}

type dateRangeJSON struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// MarshalJSON writes the range as ISO dates.
func (d DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		CheckIn:  d.CheckIn.Format(DateLayout),
		CheckOut: d.CheckOut.Format(DateLayout),
	})
}

// UnmarshalJSON reads a range written by MarshalJSON.
func (d *DateRange) UnmarshalJSON(b []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in, err := time.Parse(DateLayout, raw.CheckIn)
	if err != nil {
		return fmt.Errorf("check_in: %w", err)
	}
	out, err := time.Parse(DateLayout, raw.CheckOut)
	if err != nil {
		return fmt.Errorf("check_out: %w", err)
	}
	d.CheckIn, d.CheckOut = in, out
	return nil
}

type bookingRecordJSON struct {
	PropertyName string        `json:"property_name"`
	CheckIn      string        `json:"check_in"`
	CheckOut     string        `json:"check_out"`
	GuestName    string        `json:"guest_name"`
	GuestContact string        `json:"guest_contact,omitempty"`
	Status       BookingStatus `json:"status,omitempty"`
	RowIndex     int           `json:"row_index"`
}

// MarshalJSON writes dates as YYYY-MM-DD.
func (r BookingRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookingRecordJSON{
		PropertyName: r.PropertyName,
		CheckIn:      r.CheckIn.Format(DateLayout),
		CheckOut:     r.CheckOut.Format(DateLayout),
		GuestName:    r.GuestName,
		GuestContact: r.GuestContact,
		Status:       r.Status,
		RowIndex:     r.RowIndex,
	})
}

// UnmarshalJSON reads a record written by MarshalJSON.
func (r *BookingRecord) UnmarshalJSON(b []byte) error {
	var raw bookingRecordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in, err := time.Parse(DateLayout, raw.CheckIn)
	if err != nil {
		return fmt.Errorf("check_in: %w", err)
	}
	out, err := time.Parse(DateLayout, raw.CheckOut)
	if err != nil {
		return fmt.Errorf("check_out: %w", err)
	}
	*r = BookingRecord{
		PropertyName: raw.PropertyName,
		CheckIn:      in,
		CheckOut:     out,
		GuestName:    raw.GuestName,
		GuestContact: raw.GuestContact,
		Status:       raw.Status,
		RowIndex:     raw.RowIndex,
	}
	return nil
}
