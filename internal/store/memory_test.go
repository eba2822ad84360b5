package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristay/bookingimport/internal/core"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fields(in, out, guest string, status core.BookingStatus) core.BookingFields {
	return core.BookingFields{CheckIn: day(in), CheckOut: day(out), GuestName: guest, Status: status}
}

func TestMemory_LookupByName(t *testing.T) {
	m := NewMemory()
	id := m.AddProperty("Beach House")

	tests := []struct {
		name    string
		lookup  string
		wantErr bool
	}{
		{"exact", "Beach House", false},
		{"case insensitive", "BEACH house", false},
		{"surrounding space", "  Beach House ", false},
		{"prefix is not a match", "Beach", true},
		{"unknown", "Lake Cabin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.LookupByName(context.Background(), tt.lookup)
			if tt.wantErr {
				if !errors.Is(err, core.ErrPropertyNotFound) {
					t.Errorf("err = %v, want ErrPropertyNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != id {
				t.Errorf("id = %d, want %d", got, id)
			}
		})
	}

	if again := m.AddProperty("beach house"); again != id {
		t.Errorf("AddProperty of existing name = %d, want %d", again, id)
	}

	street := m.AddProperty("Straße 5")
	if got, err := m.LookupByName(context.Background(), "STRASSE 5"); err != nil || got != street {
		t.Errorf("LookupByName(STRASSE 5) = %d, %v; want %d", got, err, street)
	}
}

func TestMemory_QueryOverlapping(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := m.AddProperty("P1")
	other := m.AddProperty("P2")

	m.Create(ctx, core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-01", "2024-12-05", "A", core.StatusConfirmed)}, "seed")
	m.Create(ctx, core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-05", "2024-12-08", "B", core.StatusPending)}, "seed")
	m.Create(ctx, core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-02", "2024-12-04", "C", core.StatusCancelled)}, "seed")
	m.Create(ctx, core.NewBooking{PropertyID: other, BookingFields: fields("2024-12-01", "2024-12-30", "D", core.StatusConfirmed)}, "seed")

	tests := []struct {
		name    string
		in, out string
		exclude []core.BookingStatus
		want    []string
	}{
		{"inside first", "2024-12-02", "2024-12-03", []core.BookingStatus{core.StatusCancelled}, []string{"A"}},
		{"with cancelled", "2024-12-02", "2024-12-03", nil, []string{"A", "C"}},
		{"spanning both", "2024-12-04", "2024-12-06", []core.BookingStatus{core.StatusCancelled}, []string{"A", "B"}},
		{"back to back before", "2024-11-28", "2024-12-01", nil, nil},
		{"back to back after", "2024-12-08", "2024-12-10", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.QueryOverlapping(ctx, p, core.DateRange{CheckIn: day(tt.in), CheckOut: day(tt.out)}, tt.exclude)
			if err != nil {
				t.Fatalf("QueryOverlapping: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d bookings, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if b.GuestName != tt.want[i] {
					t.Errorf("booking %d guest = %q, want %q", i, b.GuestName, tt.want[i])
				}
			}
		})
	}
}

func TestMemory_CreateUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := m.AddProperty("P1")

	id, err := m.Create(ctx, core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-01", "2024-12-05", "A", "")}, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, _ := m.Booking(id)
	if b.Status != core.StatusConfirmed {
		t.Errorf("status = %q, want default %q", b.Status, core.StatusConfirmed)
	}
	if b.CreatedBy != "alice" {
		t.Errorf("created_by = %q, want alice", b.CreatedBy)
	}

	if err := m.Update(ctx, id, fields("2024-12-03", "2024-12-07", "B", core.StatusPending), "bob"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b, _ = m.Booking(id)
	if b.GuestName != "B" || !b.CheckIn.Equal(day("2024-12-03")) || b.Status != core.StatusPending {
		t.Errorf("booking not replaced: %+v", b)
	}
	if b.PropertyID != p || b.CreatedBy != "alice" || b.ModifiedBy != "bob" {
		t.Errorf("attribution or property changed: %+v", b)
	}

	if err := m.Update(ctx, 99, fields("2024-12-03", "2024-12-07", "B", ""), "bob"); !errors.Is(err, core.ErrBookingNotFound) {
		t.Errorf("Update missing = %v, want ErrBookingNotFound", err)
	}
}

func TestMemory_RejectsInvertedRange(t *testing.T) {
	m := NewMemory()
	p := m.AddProperty("P1")

	_, err := m.Create(context.Background(), core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-05", "2024-12-05", "A", "")}, "")
	if err == nil {
		t.Fatal("expected error for empty stay")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestMemory_FailWrite(t *testing.T) {
	m := NewMemory()
	p := m.AddProperty("P1")
	boom := errors.New("disk full")
	m.FailWrite = func(f core.BookingFields) error {
		if f.GuestName == "Boom" {
			return boom
		}
		return nil
	}

	if _, err := m.Create(context.Background(), core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-01", "2024-12-02", "Boom", "")}, ""); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if _, err := m.Create(context.Background(), core.NewBooking{PropertyID: p, BookingFields: fields("2024-12-01", "2024-12-02", "Fine", "")}, ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
