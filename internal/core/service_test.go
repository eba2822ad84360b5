package core_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/aristay/bookingimport/internal/core"
	"github.com/aristay/bookingimport/internal/store"
)

func TestService_Import(t *testing.T) {
	mem := store.NewMemory()
	mem.AddProperty("P1")
	svc := core.NewService(mem, mem, core.ServiceConfig{})

	r, err := svc.Import(context.Background(), core.ImportRequest{Data: sheet("P1,2024-12-01,2024-12-05,A,"), Actor: "alice"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := uuid.Parse(r.ImportID); err != nil {
		t.Errorf("ImportID %q is not a UUID: %v", r.ImportID, err)
	}
	if r.ImportedCount != 1 {
		t.Errorf("ImportedCount = %d, want 1", r.ImportedCount)
	}
	if svc.Limiter().Active() != 0 {
		t.Errorf("limiter slot not released")
	}

	again, err := svc.Resolve(context.Background(), core.ResolveRequest{Data: sheet("P1,2024-12-01,2024-12-05,A,")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if again.ImportID == r.ImportID {
		t.Error("each invocation needs its own id")
	}
	if again.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", again.SkippedCount)
	}
}

func TestService_Busy(t *testing.T) {
	mem := store.NewMemory()
	svc := core.NewService(mem, mem, core.ServiceConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})

	if err := svc.Limiter().Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer svc.Limiter().Release()

	_, err := svc.Import(context.Background(), core.ImportRequest{Data: sheet("P1,2024-12-01,2024-12-05,A,")})
	if !errors.Is(err, core.ErrTooManyImports) {
		t.Errorf("err = %v, want ErrTooManyImports", err)
	}
	if mem.Len() != 0 {
		t.Errorf("rejected import wrote %d bookings", mem.Len())
	}
}

func TestService_Columns(t *testing.T) {
	mem := store.NewMemory()
	svc := core.NewService(mem, mem, core.ServiceConfig{})

	cols := svc.Columns()
	if len(cols) != len(core.Fields) {
		t.Fatalf("got %d columns, want %d", len(cols), len(core.Fields))
	}
	for i, c := range cols {
		if c.Field != core.Fields[i] {
			t.Errorf("column %d = %s, want %s", i, c.Field, core.Fields[i])
		}
		if len(c.Headers) == 0 {
			t.Errorf("column %s lists no accepted headers", c.Field)
		}
	}
	if !cols[0].Required || cols[4].Required {
		t.Errorf("required flags wrong: %+v", cols)
	}
}

func TestService_Template(t *testing.T) {
	mem := store.NewMemory()
	mem.AddProperty("Beach House")
	svc := core.NewService(mem, mem, core.ServiceConfig{
		Importer: core.ImporterOptions{Source: core.SourceOptions{DefaultSheet: "Reservations"}},
	})

	data, err := svc.Template()
	if err != nil {
		t.Fatalf("Template: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "Reservations" {
		t.Fatalf("sheets = %v, want [Reservations]", sheets)
	}
	rows, err := f.GetRows("Reservations")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Property" {
		t.Fatalf("rows = %v", rows)
	}

	// The example row imports cleanly once the property exists.
	r, err := svc.Import(context.Background(), core.ImportRequest{Data: data})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if r.ImportedCount != 1 || !r.Success {
		t.Errorf("template import = %+v", r)
	}
}
