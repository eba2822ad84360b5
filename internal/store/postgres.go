// Package store implements the property directory and booking repository
// used by the importer: a PostgreSQL adapter for production and an
// in-memory adapter for tests and local runs.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aristay/bookingimport/internal/core"
)

//go:embed schema.sql
var schema string

// DBTX is the subset of pgx used by Postgres. Both *pgxpool.Pool and pgx.Tx
// satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores properties and bookings in PostgreSQL. Every write is a
// single statement, so each row commits or fails as a whole.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const (
	lookupProperty = `SELECT id, name FROM properties WHERE lower(name) = lower($1) ORDER BY id`
	listProperties = `SELECT id, name FROM properties ORDER BY id`
)

// LookupByName finds a property whose name equals name under
// core.FoldName. The lower() query uses the index; names lower() cannot
// match, such as "STRASSE" for "Straße", fall back to a scan.
func (p *Postgres) LookupByName(ctx context.Context, name string) (core.PropertyID, error) {
	want := core.FoldName(name)
	id, ok, err := p.findProperty(ctx, want, lookupProperty, strings.TrimSpace(name))
	if err == nil && !ok {
		id, ok, err = p.findProperty(ctx, want, listProperties)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup property %q: %w", name, err)
	}
	if !ok {
		return 0, core.ErrPropertyNotFound
	}
	return id, nil
}

func (p *Postgres) findProperty(ctx context.Context, want, query string, args ...any) (core.PropertyID, bool, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return 0, false, err
		}
		if core.FoldName(name) == want {
			return core.PropertyID(id), true, nil
		}
	}
	return 0, false, rows.Err()
}

const queryOverlapping = `
SELECT id, property_id, check_in, check_out, guest_name, guest_contact, status, created_by, modified_by
FROM bookings
WHERE property_id = $1
  AND check_in < $3
  AND $2 < check_out
  AND NOT (status = ANY($4))
ORDER BY check_in, id`

// QueryOverlapping returns bookings of property intersecting r.
func (p *Postgres) QueryOverlapping(ctx context.Context, property core.PropertyID, r core.DateRange, exclude []core.BookingStatus) ([]core.ExistingBooking, error) {
	// A NULL array would filter out every row.
	statuses := make([]string, 0, len(exclude))
	for _, s := range exclude {
		statuses = append(statuses, string(s))
	}

	rows, err := p.db.Query(ctx, queryOverlapping, int64(property), toPgDate(r.CheckIn), toPgDate(r.CheckOut), statuses)
	if err != nil {
		return nil, fmt.Errorf("query overlapping: %w", err)
	}
	defer rows.Close()

	var out []core.ExistingBooking
	for rows.Next() {
		var (
			b                 core.ExistingBooking
			id, propertyID    int64
			checkIn, checkOut pgtype.Date
			status            string
		)
		if err := rows.Scan(&id, &propertyID, &checkIn, &checkOut, &b.GuestName, &b.GuestContact, &status, &b.CreatedBy, &b.ModifiedBy); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.ID = core.BookingID(id)
		b.PropertyID = core.PropertyID(propertyID)
		b.CheckIn = fromPgDate(checkIn)
		b.CheckOut = fromPgDate(checkOut)
		b.Status = core.BookingStatus(status)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	return out, nil
}

const insertBooking = `
INSERT INTO bookings (property_id, check_in, check_out, guest_name, guest_contact, status, created_by, modified_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id`

// Create inserts a booking.
func (p *Postgres) Create(ctx context.Context, b core.NewBooking, createdBy string) (core.BookingID, error) {
	var id int64
	err := p.db.QueryRow(ctx, insertBooking,
		int64(b.PropertyID),
		toPgDate(b.CheckIn),
		toPgDate(b.CheckOut),
		b.GuestName,
		b.GuestContact,
		string(statusOrDefault(b.Status)),
		createdBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return core.BookingID(id), nil
}

const updateBooking = `
UPDATE bookings
SET check_in = $2, check_out = $3, guest_name = $4, guest_contact = $5, status = $6,
    modified_by = $7, modified_at = now()
WHERE id = $1`

// Update replaces the booking fields of id.
func (p *Postgres) Update(ctx context.Context, id core.BookingID, f core.BookingFields, modifiedBy string) error {
	tag, err := p.db.Exec(ctx, updateBooking,
		int64(id),
		toPgDate(f.CheckIn),
		toPgDate(f.CheckOut),
		f.GuestName,
		f.GuestContact,
		string(statusOrDefault(f.Status)),
		modifiedBy,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update booking %d: %w", id, core.ErrBookingNotFound)
	}
	return nil
}

func toPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}

func fromPgDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func statusOrDefault(s core.BookingStatus) core.BookingStatus {
	if s == "" {
		return core.DefaultStatus
	}
	return s
}
