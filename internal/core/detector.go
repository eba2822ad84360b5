package core

// detector.go finds existing bookings that a candidate would collide with.
//
// Stays are half-open: a booking checking out on the day another checks in
// does not overlap it. Cancelled bookings never block an active candidate.
// A cancelled candidate is compared against every booking so that importing
// the same cancelled rows twice is reported rather than duplicated.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Overlaps reports whether two half-open ranges intersect.
func Overlaps(a, b DateRange) bool {
	return a.CheckIn.Before(b.CheckOut) && b.CheckIn.Before(a.CheckOut)
}

// ConflictDetector queries a BookingRepository for overlaps.
type ConflictDetector struct {
	repo BookingRepository
}

// NewConflictDetector creates a detector over repo.
func NewConflictDetector(repo BookingRepository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// Overlapping returns the existing bookings of property that overlap rec,
// ordered by check-in then id.
func (d *ConflictDetector) Overlapping(ctx context.Context, property PropertyID, rec BookingRecord) ([]ExistingBooking, error) {
	var exclude []BookingStatus
	if rec.Status != StatusCancelled {
		exclude = []BookingStatus{StatusCancelled}
	}

	found, err := d.repo.QueryOverlapping(ctx, property, rec.Range(), exclude)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}

	out := found[:0:0]
	for _, b := range found {
		if Overlaps(rec.Range(), b.Range()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.Before(out[j].CheckIn)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Detect returns one Conflict per overlapping booking. All conflicts of a
// record share its CandidateKey.
func (d *ConflictDetector) Detect(ctx context.Context, property PropertyID, rec BookingRecord) ([]Conflict, error) {
	existing, err := d.Overlapping(ctx, property, rec)
	if err != nil {
		return nil, err
	}
	return conflictsFor(rec, property, existing), nil
}

func conflictsFor(rec BookingRecord, property PropertyID, existing []ExistingBooking) []Conflict {
	if len(existing) == 0 {
		return nil
	}
	candidate := CandidateKey(rec)
	out := make([]Conflict, len(existing))
	for i, b := range existing {
		out[i] = Conflict{
			Key:               ConflictKey(candidate, b.ID),
			CandidateKey:      candidate,
			RowIndex:          rec.RowIndex,
			PropertyID:        property,
			CandidateDates:    rec.Range(),
			ExistingBookingID: b.ID,
			ExistingDates:     b.Range(),
			ExistingGuest:     b.GuestName,
		}
	}
	return out
}

// CandidateKey identifies a candidate row across the detect and resolve
// calls. It depends only on the row's property name, dates and index, so the
// same file always yields the same keys.
func CandidateKey(rec BookingRecord) string {
	h := sha256.New()
	for _, part := range []string{
		FoldName(rec.PropertyName),
		rec.CheckIn.Format(DateLayout),
		rec.CheckOut.Format(DateLayout),
		strconv.Itoa(rec.RowIndex),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ConflictKey identifies one reported overlap: a candidate row and the
// existing booking it collides with. A decision made under this key applies
// to that booking only.
func ConflictKey(candidate string, existing BookingID) string {
	return candidate + ":" + strconv.FormatInt(int64(existing), 10)
}

// ParseConflictKey splits a key built by ConflictKey.
func ParseConflictKey(key string) (candidate string, existing BookingID, ok bool) {
	candidate, id, found := strings.Cut(key, ":")
	if !found || candidate == "" {
		return "", 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return candidate, BookingID(n), true
}

// sameBooking reports whether b already holds exactly what rec would write.
func sameBooking(rec BookingRecord, b ExistingBooking) bool {
	return rec.CheckIn.Equal(b.CheckIn) &&
		rec.CheckOut.Equal(b.CheckOut) &&
		FoldName(rec.GuestName) == FoldName(b.GuestName) &&
		rec.Status == b.Status
}
