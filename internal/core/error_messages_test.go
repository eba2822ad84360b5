package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error", nil, ""},
		{"too many imports", fmt.Errorf("acquire: %w", ErrTooManyImports), "IMP001"},
		{"cancelled", fmt.Errorf("import: %w", context.Canceled), "IMP003"},
		{"deadline", context.DeadlineExceeded, "IMP004"},
		{"table not found", &TableNotFoundError{Name: "Q3", Available: []string{"Bookings"}}, "TBL001"},
		{"file too large", &SourceFormatError{Reason: "file too large: exceeds 10 bytes"}, "FILE001"},
		{"legacy xls", &SourceFormatError{Reason: "legacy .xls workbooks are not supported"}, "FILE003"},
		{"corrupt workbook", &SourceFormatError{Reason: "unreadable workbook", Err: errors.New("zip: not a valid zip file")}, "FILE002"},
		{"no file", errors.New("no file provided"), "FILE004"},
		{"duplicate key", errors.New(`ERROR: duplicate key value violates unique constraint "bookings_pkey"`), "DB001"},
		{"check constraint", errors.New(`new row violates check constraint "bookings_dates_check"`), "DB002"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "DB003"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("DEADLOCK detected"), "DB004"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapImportError(t *testing.T) {
	tests := []struct {
		name     string
		err      ImportError
		wantCode string
	}{
		{"empty source", ImportError{Kind: KindEmptySource, Message: "the table has no data rows"}, "FILE002"},
		{"bad date", ImportError{RowIndex: 2, Field: FieldCheckOut, Kind: KindBadType, Message: `invalid date "2024-13-45"`}, "VAL001"},
		{"bad status", ImportError{RowIndex: 2, Field: FieldStatus, Kind: KindBadType, Message: `invalid status "maybe"`}, "VAL002"},
		{"empty cell", ImportError{RowIndex: 3, Field: FieldGuestName, Kind: KindMissingField, Message: "required field is empty"}, "VAL003"},
		{"bad range", ImportError{RowIndex: 4, Field: FieldCheckOut, Kind: KindBadRange, Message: "check-out 2024-12-01 must be after check-in 2024-12-05"}, "VAL005"},
		{"unknown property", ImportError{RowIndex: 5, Field: FieldPropertyName, Kind: KindUnknownProperty, Message: `property "Nowhere" not found`}, "VAL006"},
		{"merge", ImportError{RowIndex: 6, Kind: KindInvalidResolution, Message: `unsupported resolution "merge" for conflict ab12`}, "IMP002"},
		{"two overwrites", ImportError{RowIndex: 6, Kind: KindInvalidResolution, Message: "a row can overwrite one booking, got #1, #2"}, "IMP002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapImportError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapImportError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil error should not be user facing")
	}
	if !IsUserFacing(errors.New("duplicate key")) {
		t.Error("duplicate key should be user facing")
	}
	if IsUserFacing(errors.New("random internal error xyz")) {
		t.Error("unknown error should not be user facing")
	}
}
