package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristay/bookingimport/internal/core"
)

// Memory is an in-process directory and repository. It is safe for
// concurrent use.
type Memory struct {
	mu         sync.Mutex
	properties map[string]core.PropertyID
	bookings   map[core.BookingID]core.ExistingBooking
	lastProp   core.PropertyID
	lastID     core.BookingID

	// FailWrite, when set, is consulted before every Create and Update.
	// A non-nil result is returned instead of writing.
	FailWrite func(f core.BookingFields) error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		properties: make(map[string]core.PropertyID),
		bookings:   make(map[core.BookingID]core.ExistingBooking),
	}
}

// AddProperty registers a property and returns its id. Adding a name that
// already exists returns the existing id.
func (m *Memory) AddProperty(name string) core.PropertyID {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := core.FoldName(name)
	if id, ok := m.properties[key]; ok {
		return id
	}
	m.lastProp++
	m.properties[key] = m.lastProp
	return m.lastProp
}

// LookupByName implements core.PropertyDirectory.
func (m *Memory) LookupByName(_ context.Context, name string) (core.PropertyID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.properties[core.FoldName(name)]; ok {
		return id, nil
	}
	return 0, core.ErrPropertyNotFound
}

// QueryOverlapping implements core.BookingRepository.
func (m *Memory) QueryOverlapping(_ context.Context, property core.PropertyID, r core.DateRange, exclude []core.BookingStatus) ([]core.ExistingBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.ExistingBooking
	for _, b := range m.bookings {
		if b.PropertyID != property || excluded(b.Status, exclude) {
			continue
		}
		if b.CheckIn.Before(r.CheckOut) && r.CheckIn.Before(b.CheckOut) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

// Create implements core.BookingRepository.
func (m *Memory) Create(_ context.Context, b core.NewBooking, createdBy string) (core.BookingID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkWrite(b.BookingFields); err != nil {
		return 0, err
	}
	m.lastID++
	m.bookings[m.lastID] = core.ExistingBooking{
		ID:            m.lastID,
		PropertyID:    b.PropertyID,
		BookingFields: withStatus(b.BookingFields),
		CreatedBy:     createdBy,
		ModifiedBy:    createdBy,
	}
	return m.lastID, nil
}

// Update implements core.BookingRepository.
func (m *Memory) Update(_ context.Context, id core.BookingID, f core.BookingFields, modifiedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("update booking %d: %w", id, core.ErrBookingNotFound)
	}
	if err := m.checkWrite(f); err != nil {
		return err
	}
	b.BookingFields = withStatus(f)
	b.ModifiedBy = modifiedBy
	m.bookings[id] = b
	return nil
}

// Booking returns a stored booking by id.
func (m *Memory) Booking(id core.BookingID) (core.ExistingBooking, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	return b, ok
}

// Bookings returns every booking of property ordered by check-in.
func (m *Memory) Bookings(property core.PropertyID) []core.ExistingBooking {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.ExistingBooking
	for _, b := range m.bookings {
		if b.PropertyID == property {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

// Len returns the total number of bookings.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *Memory) checkWrite(f core.BookingFields) error {
	if m.FailWrite != nil {
		if err := m.FailWrite(f); err != nil {
			return err
		}
	}
	if !f.CheckOut.After(f.CheckIn) {
		return fmt.Errorf("booking violates check constraint: check_out must be after check_in")
	}
	return nil
}

func excluded(s core.BookingStatus, exclude []core.BookingStatus) bool {
	for _, e := range exclude {
		if s == e {
			return true
		}
	}
	return false
}

func withStatus(f core.BookingFields) core.BookingFields {
	f.Status = statusOrDefault(f.Status)
	return f
}

func sortBookings(b []core.ExistingBooking) {
	sort.Slice(b, func(i, j int) bool {
		if !b[i].CheckIn.Equal(b[j].CheckIn) {
			return b[i].CheckIn.Before(b[j].CheckIn)
		}
		return b[i].ID < b[j].ID
	})
}
