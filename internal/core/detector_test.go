package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func span(in, out string) DateRange {
	return DateRange{CheckIn: date(in), CheckOut: date(out)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"identical", span("2024-12-01", "2024-12-05"), span("2024-12-01", "2024-12-05"), true},
		{"partial", span("2024-12-01", "2024-12-05"), span("2024-12-03", "2024-12-07"), true},
		{"contained", span("2024-12-01", "2024-12-10"), span("2024-12-03", "2024-12-04"), true},
		{"one night shared", span("2024-12-01", "2024-12-05"), span("2024-12-04", "2024-12-06"), true},
		{"back to back", span("2024-12-01", "2024-12-05"), span("2024-12-05", "2024-12-08"), false},
		{"back to back reversed", span("2024-12-05", "2024-12-08"), span("2024-12-01", "2024-12-05"), false},
		{"apart", span("2024-12-01", "2024-12-03"), span("2024-12-10", "2024-12-12"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

// Every pair of stays that only touch, over a month of start days and
// lengths, must not overlap.
func TestOverlaps_AdjacentNeverConflict(t *testing.T) {
	base := date("2024-01-01")
	for start := 0; start < 31; start++ {
		for lenA := 1; lenA <= 7; lenA++ {
			for lenB := 1; lenB <= 7; lenB++ {
				a := DateRange{CheckIn: base.AddDate(0, 0, start), CheckOut: base.AddDate(0, 0, start+lenA)}
				b := DateRange{CheckIn: a.CheckOut, CheckOut: a.CheckOut.AddDate(0, 0, lenB)}
				if Overlaps(a, b) || Overlaps(b, a) {
					t.Fatalf("adjacent stays %v and %v reported as overlapping", a, b)
				}
			}
		}
	}
}

func TestCandidateKey(t *testing.T) {
	rec := BookingRecord{
		PropertyName: "Beach House",
		CheckIn:      date("2024-12-03"),
		CheckOut:     date("2024-12-07"),
		GuestName:    "B",
		RowIndex:     2,
	}

	key := CandidateKey(rec)
	if len(key) != 16 {
		t.Fatalf("key %q has length %d, want 16", key, len(key))
	}

	same := rec
	same.PropertyName = "  beach HOUSE"
	same.GuestName = "someone else"
	if got := CandidateKey(same); got != key {
		t.Errorf("key changed with case or guest: %q vs %q", got, key)
	}

	for name, mutate := range map[string]func(*BookingRecord){
		"row":       func(r *BookingRecord) { r.RowIndex = 3 },
		"check-in":  func(r *BookingRecord) { r.CheckIn = date("2024-12-02") },
		"check-out": func(r *BookingRecord) { r.CheckOut = date("2024-12-08") },
		"property":  func(r *BookingRecord) { r.PropertyName = "Lake Cabin" },
	} {
		other := rec
		mutate(&other)
		if CandidateKey(other) == key {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestParseConflictKey(t *testing.T) {
	tests := []struct {
		key       string
		candidate string
		id        BookingID
		ok        bool
	}{
		{ConflictKey("0123456789abcdef", 42), "0123456789abcdef", 42, true},
		{"0123456789abcdef:7", "0123456789abcdef", 7, true},
		{"0123456789abcdef", "", 0, false},
		{"0123456789abcdef:", "", 0, false},
		{"0123456789abcdef:x", "", 0, false},
		{"0123456789abcdef:-3", "", 0, false},
		{":7", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			candidate, id, ok := ParseConflictKey(tt.key)
			if candidate != tt.candidate || id != tt.id || ok != tt.ok {
				t.Errorf("ParseConflictKey(%q) = %q, %d, %v; want %q, %d, %v",
					tt.key, candidate, id, ok, tt.candidate, tt.id, tt.ok)
			}
		})
	}
}

type stubRepo struct {
	found   []ExistingBooking
	err     error
	exclude []BookingStatus
}

func (s *stubRepo) QueryOverlapping(_ context.Context, _ PropertyID, _ DateRange, exclude []BookingStatus) ([]ExistingBooking, error) {
	s.exclude = exclude
	return s.found, s.err
}

func (s *stubRepo) Create(context.Context, NewBooking, string) (BookingID, error) {
	return 0, errors.New("not implemented")
}

func (s *stubRepo) Update(context.Context, BookingID, BookingFields, string) error {
	return errors.New("not implemented")
}

func existing(id BookingID, in, out, guest string, status BookingStatus) ExistingBooking {
	r := span(in, out)
	return ExistingBooking{
		ID:            id,
		PropertyID:    1,
		BookingFields: BookingFields{CheckIn: r.CheckIn, CheckOut: r.CheckOut, GuestName: guest, Status: status},
	}
}

func TestConflictDetector_Detect(t *testing.T) {
	repo := &stubRepo{found: []ExistingBooking{
		existing(9, "2024-12-06", "2024-12-09", "Late", StatusConfirmed),
		existing(4, "2024-12-01", "2024-12-04", "Early", StatusPending),
		// Touching only; a repository returning it must not produce a conflict.
		existing(5, "2024-12-07", "2024-12-10", "Adjacent", StatusConfirmed),
		existing(2, "2024-12-01", "2024-12-05", "Tie", StatusConfirmed),
	}}
	d := NewConflictDetector(repo)
	rec := BookingRecord{PropertyName: "P1", CheckIn: date("2024-12-03"), CheckOut: date("2024-12-07"), GuestName: "New", Status: StatusConfirmed, RowIndex: 1}

	conflicts, err := d.Detect(context.Background(), 1, rec)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var ids []BookingID
	for _, c := range conflicts {
		ids = append(ids, c.ExistingBookingID)
		if c.CandidateKey != CandidateKey(rec) {
			t.Errorf("candidate key = %q, want the row key", c.CandidateKey)
		}
		if c.Key != ConflictKey(c.CandidateKey, c.ExistingBookingID) {
			t.Errorf("conflict key = %q, want row key plus booking id", c.Key)
		}
		if c.CandidateDates != rec.Range() {
			t.Errorf("candidate dates = %+v", c.CandidateDates)
		}
	}
	if want := []BookingID{2, 4, 9}; !reflect.DeepEqual(ids, want) {
		t.Errorf("conflicting ids = %v, want %v", ids, want)
	}
	if !reflect.DeepEqual(repo.exclude, []BookingStatus{StatusCancelled}) {
		t.Errorf("active candidate excluded %v, want [cancelled]", repo.exclude)
	}
}

func TestConflictDetector_CancelledCandidate(t *testing.T) {
	repo := &stubRepo{}
	d := NewConflictDetector(repo)
	rec := BookingRecord{PropertyName: "P1", CheckIn: date("2024-12-03"), CheckOut: date("2024-12-07"), GuestName: "X", Status: StatusCancelled, RowIndex: 1}

	if _, err := d.Detect(context.Background(), 1, rec); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(repo.exclude) != 0 {
		t.Errorf("cancelled candidate excluded %v, want nothing", repo.exclude)
	}
}

func TestConflictDetector_RepositoryError(t *testing.T) {
	boom := errors.New("connection reset")
	d := NewConflictDetector(&stubRepo{err: boom})

	_, err := d.Detect(context.Background(), 1, BookingRecord{CheckIn: date("2024-12-01"), CheckOut: date("2024-12-02")})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}
