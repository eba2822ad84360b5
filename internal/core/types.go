package core

import (
	"context"
	"errors"
	"time"
)

// Field is the canonical name of a booking column.
type Field string

const (
	FieldPropertyName Field = "property_name"
	FieldCheckIn      Field = "check_in"
	FieldCheckOut     Field = "check_out"
	FieldGuestName    Field = "guest_name"
	FieldGuestContact Field = "guest_contact"
	FieldStatus       Field = "status"
)

// Fields lists every canonical field in template order.
var Fields = []Field{
	FieldPropertyName,
	FieldCheckIn,
	FieldCheckOut,
	FieldGuestName,
	FieldGuestContact,
	FieldStatus,
}

// RequiredFields must be present and non-empty on every row.
var RequiredFields = []Field{
	FieldPropertyName,
	FieldCheckIn,
	FieldCheckOut,
	FieldGuestName,
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusPending   BookingStatus = "pending"
	StatusCancelled BookingStatus = "cancelled"
)

// Statuses lists the accepted booking statuses.
var Statuses = []BookingStatus{StatusConfirmed, StatusPending, StatusCancelled}

// DefaultStatus is applied when a row leaves the status column empty.
const DefaultStatus = StatusConfirmed

// PropertyID identifies a property in the external directory.
type PropertyID int64

// BookingID identifies a persisted booking.
type BookingID int64

// Cell is a single labelled value of a source row.
type Cell struct {
	Label string // Header text as written in the file
	Field Field  // Canonical field, empty if the header is not recognised
	Value string
}

// RawRow is one data row of a table, in column order.
type RawRow struct {
	Index int // 1-based, header excluded
	Cells []Cell

	// SerialDates is set for workbook rows, where date cells arrive as
	// spreadsheet serial numbers.
	SerialDates bool
}

// Get returns the value of the first cell mapped to f.
func (r RawRow) Get(f Field) (string, bool) {
	for _, c := range r.Cells {
		if c.Field == f {
			return c.Value, true
		}
	}
	return "", false
}

// withDefault returns a copy of r where f holds value if the row has no
// column for f or leaves it blank.
func (r RawRow) withDefault(f Field, value string) RawRow {
	cells := make([]Cell, 0, len(r.Cells)+1)
	filled := false
	for _, c := range r.Cells {
		if c.Field == f && !filled {
			if CleanCell(c.Value) == "" {
				c.Value = value
			}
			filled = true
		}
		cells = append(cells, c)
	}
	if !filled {
		cells = append(cells, Cell{Label: string(f), Field: f, Value: value})
	}
	r.Cells = cells
	return r
}

// DateRange is a half-open stay interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Nights returns the number of occupied nights.
func (d DateRange) Nights() int {
	return int(d.CheckOut.Sub(d.CheckIn).Hours() / 24)
}

// BookingRecord is a validated row awaiting commit or conflict resolution.
type BookingRecord struct {
	PropertyName string        `json:"property_name" validate:"required"`
	CheckIn      time.Time     `json:"check_in" validate:"required"`
	CheckOut     time.Time     `json:"check_out" validate:"required,gtfield=CheckIn"`
	GuestName    string        `json:"guest_name" validate:"required"`
	GuestContact string        `json:"guest_contact,omitempty"`
	Status       BookingStatus `json:"status,omitempty"`
	RowIndex     int           `json:"row_index" validate:"gte=1"`
}

// Range returns the stay interval of the record.
func (r BookingRecord) Range() DateRange {
	return DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// Fields returns the mutable booking fields carried by the record.
func (r BookingRecord) Fields() BookingFields {
	return BookingFields{
		CheckIn:      r.CheckIn,
		CheckOut:     r.CheckOut,
		GuestName:    r.GuestName,
		GuestContact: r.GuestContact,
		Status:       r.Status,
	}
}

// BookingFields are the columns an import writes. An overwrite replaces all
// of them at once.
type BookingFields struct {
	CheckIn      time.Time
	CheckOut     time.Time
	GuestName    string
	GuestContact string
	Status       BookingStatus
}

// NewBooking is the payload for creating a booking.
type NewBooking struct {
	PropertyID PropertyID
	BookingFields
}

// ExistingBooking is a booking already held by the repository.
type ExistingBooking struct {
	ID         BookingID
	PropertyID PropertyID
	BookingFields
	CreatedBy  string
	ModifiedBy string
}

// Range returns the stay interval of the booking.
func (b ExistingBooking) Range() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// ErrPropertyNotFound is returned by a PropertyDirectory when no property matches.
var ErrPropertyNotFound = errors.New("property not found")

// ErrBookingNotFound is returned by a BookingRepository update of a missing booking.
var ErrBookingNotFound = errors.New("booking not found")

// PropertyDirectory resolves free-text property names.
// Implementations must match names exactly and case-insensitively.
type PropertyDirectory interface {
	LookupByName(ctx context.Context, name string) (PropertyID, error)
}

// BookingRepository is the storage capability the importer commits through.
type BookingRepository interface {
	// QueryOverlapping returns bookings of the property whose stay overlaps r,
	// ignoring bookings whose status is in exclude.
	QueryOverlapping(ctx context.Context, property PropertyID, r DateRange, exclude []BookingStatus) ([]ExistingBooking, error)

	// Create persists a new booking attributed to createdBy.
	Create(ctx context.Context, b NewBooking, createdBy string) (BookingID, error)

	// Update replaces the booking fields of id in a single step, attributed
	// to modifiedBy. Returns ErrBookingNotFound if id does not exist.
	Update(ctx context.Context, id BookingID, f BookingFields, modifiedBy string) error
}
