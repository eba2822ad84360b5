package core

import (
	"testing"
)

// row builds a RawRow from label/value pairs using the default header map.
func row(index int, pairs ...string) RawRow {
	m := MustHeaderMap(nil)
	r := RawRow{Index: index}
	for i := 0; i+1 < len(pairs); i += 2 {
		f, _ := m.Field(pairs[i])
		r.Cells = append(r.Cells, Cell{Label: pairs[i], Field: f, Value: pairs[i+1]})
	}
	return r
}

type wantErr struct {
	field Field
	kind  ErrorKind
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
		want []wantErr
	}{
		{
			name: "valid",
			row:  row(1, "Property", "P1", "Check In", "2024-12-01", "Check Out", "2024-12-05", "Guest", "A"),
		},
		{
			name: "bad check-out date",
			row:  row(1, "Property", "P1", "Check In", "2024-12-01", "Check Out", "2024-13-45", "Guest", "A"),
			want: []wantErr{{FieldCheckOut, KindBadType}},
		},
		{
			name: "check-out equal to check-in",
			row:  row(2, "Property", "P1", "Check In", "2024-12-05", "Check Out", "2024-12-05", "Guest", "A"),
			want: []wantErr{{FieldCheckOut, KindBadRange}},
		},
		{
			name: "check-out before check-in",
			row:  row(2, "Property", "P1", "Check In", "2024-12-05", "Check Out", "2024-12-01", "Guest", "A"),
			want: []wantErr{{FieldCheckOut, KindBadRange}},
		},
		{
			name: "missing guest column",
			row:  row(3, "Property", "P1", "Check In", "2024-12-01", "Check Out", "2024-12-05"),
			want: []wantErr{{FieldGuestName, KindMissingField}},
		},
		{
			name: "empty property cell",
			row:  row(3, "Property", "  ", "Check In", "2024-12-01", "Check Out", "2024-12-05", "Guest", "A"),
			want: []wantErr{{FieldPropertyName, KindMissingField}},
		},
		{
			name: "unknown status",
			row:  row(4, "Property", "P1", "Check In", "2024-12-01", "Check Out", "2024-12-05", "Guest", "A", "Status", "tentative"),
			want: []wantErr{{FieldStatus, KindBadType}},
		},
		{
			name: "all problems reported together",
			row:  row(5, "Check In", "soon", "Check Out", "later", "Guest", "", "Status", "maybe"),
			want: []wantErr{
				{FieldPropertyName, KindMissingField},
				{FieldGuestName, KindMissingField},
				{FieldCheckIn, KindBadType},
				{FieldCheckOut, KindBadType},
				{FieldStatus, KindBadType},
			},
		},
	}

	v := NewRowValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := v.ValidateRow(tt.row)
			if len(errs) != len(tt.want) {
				t.Fatalf("got %d errors %v, want %d", len(errs), errs, len(tt.want))
			}
			for i, e := range errs {
				if e.Field != tt.want[i].field || e.Kind != tt.want[i].kind {
					t.Errorf("error %d = %s/%s, want %s/%s", i, e.Field, e.Kind, tt.want[i].field, tt.want[i].kind)
				}
				if e.RowIndex != tt.row.Index {
					t.Errorf("error %d row = %d, want %d", i, e.RowIndex, tt.row.Index)
				}
			}
		})
	}
}

func TestValidateRow_Record(t *testing.T) {
	r := row(7,
		"Listing", " Beach House ",
		"Arrival", "12/01/2024",
		"Departure", "Dec 5 2024",
		"Guest Name", "Ana",
		"Phone", "+1 555 0100",
		"Status", "Canceled",
	)

	rec, errs := NewRowValidator(nil).ValidateRow(r)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	want := BookingRecord{
		PropertyName: "Beach House",
		CheckIn:      date("2024-12-01"),
		CheckOut:     date("2024-12-05"),
		GuestName:    "Ana",
		GuestContact: "+1 555 0100",
		Status:       StatusCancelled,
		RowIndex:     7,
	}
	if rec != want {
		t.Errorf("record = %+v\nwant     %+v", rec, want)
	}
	if n := rec.Range().Nights(); n != 4 {
		t.Errorf("Nights = %d, want 4", n)
	}
}

func TestValidateRow_DefaultStatus(t *testing.T) {
	rec, errs := NewRowValidator(nil).ValidateRow(
		row(1, "Property", "P1", "Check In", "2024-12-01", "Check Out", "2024-12-05", "Guest", "A"),
	)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if rec.Status != StatusConfirmed {
		t.Errorf("Status = %q, want %q", rec.Status, StatusConfirmed)
	}
}
