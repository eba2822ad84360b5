package core

// headers.go maps free-text spreadsheet headers to canonical fields.
//
// Matching goes through an explicit synonym table only. A header is
// normalised (trimmed, inner whitespace collapsed, case-folded, '_' and '-'
// treated as spaces) and then looked up; anything not in the table is carried
// through as an unmapped cell and ignored by validation.

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSynonyms lists the accepted header strings per canonical field.
var DefaultSynonyms = map[Field][]string{
	FieldPropertyName: {"Property", "Property Name", "Listing", "Unit"},
	FieldCheckIn:      {"Check In", "Check-In Date", "Check In Date", "Arrival", "Arrival Date", "Start Date"},
	FieldCheckOut:     {"Check Out", "Check-Out Date", "Check Out Date", "Departure", "Departure Date", "End Date"},
	FieldGuestName:    {"Guest", "Guest Name", "Name"},
	FieldGuestContact: {"Guest Contact", "Contact", "Email", "Phone", "Guest Email", "Guest Phone"},
	FieldStatus:       {"Status", "Booking Status"},
}

// HeaderMap resolves header labels to canonical fields.
type HeaderMap struct {
	lookup map[string]Field
}

// NewHeaderMap builds a map from DefaultSynonyms plus extra synonyms.
// Extra keys must be canonical field names; an accepted string may map to
// one field only.
func NewHeaderMap(extra map[string][]string) (*HeaderMap, error) {
	m := &HeaderMap{lookup: make(map[string]Field)}
	for _, f := range Fields {
		// The canonical name itself is always accepted.
		if err := m.add(string(f), f); err != nil {
			return nil, err
		}
		for _, s := range DefaultSynonyms[f] {
			if err := m.add(s, f); err != nil {
				return nil, err
			}
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := ParseField(k)
		if !ok {
			return nil, fmt.Errorf("unknown field %q in synonym table", k)
		}
		for _, s := range extra[k] {
			if err := m.add(s, f); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// MustHeaderMap is NewHeaderMap for static tables. Panics on error.
func MustHeaderMap(extra map[string][]string) *HeaderMap {
	m, err := NewHeaderMap(extra)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *HeaderMap) add(label string, f Field) error {
	key := normalizeHeader(label)
	if key == "" {
		return fmt.Errorf("empty synonym for %s", f)
	}
	if prev, ok := m.lookup[key]; ok && prev != f {
		return fmt.Errorf("synonym %q maps to both %s and %s", label, prev, f)
	}
	m.lookup[key] = f
	return nil
}

// Field returns the canonical field for a header label.
func (m *HeaderMap) Field(label string) (Field, bool) {
	f, ok := m.lookup[normalizeHeader(label)]
	return f, ok
}

// Map resolves every header of a row. Unrecognised headers map to "".
// Only the first column of each field is mapped.
func (m *HeaderMap) Map(headers []string) []Field {
	fields := make([]Field, len(headers))
	seen := make(map[Field]bool, len(Fields))
	for i, h := range headers {
		f, ok := m.Field(h)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		fields[i] = f
	}
	return fields
}

// Synonyms returns the accepted (normalised) labels per field, sorted.
func (m *HeaderMap) Synonyms() map[Field][]string {
	out := make(map[Field][]string, len(Fields))
	for label, f := range m.lookup {
		out[f] = append(out[f], label)
	}
	for f := range out {
		sort.Strings(out[f])
	}
	return out
}

// ParseField converts a canonical field name, case-insensitively.
func ParseField(s string) (Field, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// normalizeHeader folds a header label for lookup.
func normalizeHeader(s string) string {
	s = CleanCell(s)
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)
	return FoldName(strings.Join(strings.Fields(s), " "))
}
