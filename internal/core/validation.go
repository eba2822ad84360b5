package core

// validation.go turns a RawRow into a BookingRecord.
//
// Every problem in a row is reported, not just the first, so an operator can
// fix a spreadsheet in one pass. Rows are validated independently; a bad row
// never affects its neighbours.

import (
	"fmt"
	"strings"
)

// RowValidator validates rows against the booking field set.
type RowValidator struct {
	layouts []string
}

// NewRowValidator creates a validator accepting the given date layouts.
// An empty list means DefaultDateLayouts.
func NewRowValidator(layouts []string) *RowValidator {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &RowValidator{layouts: layouts}
}

// ValidateRow converts row into a record. When the returned slice is
// non-empty the record must not be used.
func (v *RowValidator) ValidateRow(row RawRow) (BookingRecord, []ImportError) {
	var errs []ImportError
	fail := func(f Field, kind ErrorKind, format string, args ...any) {
		errs = append(errs, ImportError{
			RowIndex: row.Index,
			Field:    f,
			Message:  fmt.Sprintf(format, args...),
			Kind:     kind,
		})
	}

	values := make(map[Field]string, len(Fields))
	present := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		raw, ok := row.Get(f)
		values[f] = CleanCell(raw)
		present[f] = ok
	}

	for _, f := range RequiredFields {
		switch {
		case !present[f]:
			fail(f, KindMissingField, "missing required column")
		case values[f] == "":
			fail(f, KindMissingField, "required field is empty")
		}
	}

	rec := BookingRecord{
		PropertyName: values[FieldPropertyName],
		GuestName:    values[FieldGuestName],
		GuestContact: values[FieldGuestContact],
		RowIndex:     row.Index,
	}

	checkInOK, checkOutOK := false, false
	if s := values[FieldCheckIn]; s != "" {
		if t, ok := ParseDate(s, v.layouts, row.SerialDates); ok {
			rec.CheckIn, checkInOK = t, true
		} else {
			fail(FieldCheckIn, KindBadType, "invalid date %q (expected %s)", s, v.expected())
		}
	}
	if s := values[FieldCheckOut]; s != "" {
		if t, ok := ParseDate(s, v.layouts, row.SerialDates); ok {
			rec.CheckOut, checkOutOK = t, true
		} else {
			fail(FieldCheckOut, KindBadType, "invalid date %q (expected %s)", s, v.expected())
		}
	}
	if checkInOK && checkOutOK && !rec.CheckOut.After(rec.CheckIn) {
		fail(FieldCheckOut, KindBadRange, "check-out %s must be after check-in %s",
			rec.CheckOut.Format(DateLayout), rec.CheckIn.Format(DateLayout))
	}

	status, ok := ParseStatus(values[FieldStatus])
	if !ok {
		fail(FieldStatus, KindBadType, "invalid status %q (allowed: confirmed, pending, cancelled)", values[FieldStatus])
	}
	rec.Status = status

	return rec, errs
}

func (v *RowValidator) expected() string {
	return strings.Join(v.layouts, ", ")
}
