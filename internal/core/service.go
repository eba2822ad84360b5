package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/aristay/bookingimport/internal/logging"
)

// DefaultImportTimeout bounds a single import invocation.
const DefaultImportTimeout = 5 * time.Minute

// TemplateHeaders are the column labels written to the download template.
var TemplateHeaders = map[Field]string{
	FieldPropertyName: "Property",
	FieldCheckIn:      "Check In",
	FieldCheckOut:     "Check Out",
	FieldGuestName:    "Guest Name",
	FieldGuestContact: "Guest Contact",
	FieldStatus:       "Status",
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Importer      ImporterOptions
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Service is the entry point used by transports. It bounds concurrent
// imports, assigns import ids, applies a timeout and logs each invocation.
type Service struct {
	importer *Importer
	limiter  *ImportLimiter
	headers  *HeaderMap
	sheet    string
	timeout  time.Duration
}

// NewService creates a Service over the given collaborators.
func NewService(dir PropertyDirectory, repo BookingRepository, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	im := NewImporter(dir, repo, cfg.Importer)
	return &Service{
		importer: im,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		headers:  im.source.Headers,
		sheet:    im.source.DefaultSheet,
		timeout:  cfg.Timeout,
	}
}

// Limiter exposes the import limiter for health checks and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import runs detect-and-import. An error is returned only when the import
// could not start or was interrupted; row problems are in the report.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	req.ImportID = uuid.New().String()
	return s.run(ctx, ModeDetect, req.ImportID, func(ctx context.Context) (*ImportReport, error) {
		return s.importer.DetectAndImport(ctx, req)
	})
}

// Resolve applies conflict decisions. See Importer.ResolveConflicts.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*ImportReport, error) {
	req.ImportID = uuid.New().String()
	return s.run(ctx, ModeResolve, req.ImportID, func(ctx context.Context) (*ImportReport, error) {
		return s.importer.ResolveConflicts(ctx, req)
	})
}

func (s *Service) run(ctx context.Context, mode Mode, id string, fn func(context.Context) (*ImportReport, error)) (*ImportReport, error) {
	log := logging.WithFields(ctx, "import_id", id, "mode", mode)

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("import rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Info("import started")
	report, err := fn(ctx)
	if err != nil {
		log.Error("import interrupted",
			"error", err,
			"imported", report.ImportedCount,
		)
		return report, fmt.Errorf("import %s: %w", id, err)
	}

	log.Info("import completed",
		"table", report.Table,
		"success", report.Success,
		"total_rows", report.TotalRows,
		"imported", report.ImportedCount,
		"skipped", report.SkippedCount,
		"failed", report.FailedCount,
		"errors", len(report.Errors),
		"conflicts", len(report.Conflicts),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// ColumnInfo describes one canonical column and the headers accepted for it.
type ColumnInfo struct {
	Field    Field    `json:"field"`
	Required bool     `json:"required"`
	Headers  []string `json:"headers"`
}

// Columns lists the canonical columns in template order.
func (s *Service) Columns() []ColumnInfo {
	required := make(map[Field]bool, len(RequiredFields))
	for _, f := range RequiredFields {
		required[f] = true
	}

	synonyms := s.headers.Synonyms()
	out := make([]ColumnInfo, len(Fields))
	for i, f := range Fields {
		out[i] = ColumnInfo{Field: f, Required: required[f], Headers: synonyms[f]}
	}
	return out
}

// Template builds an empty XLSX workbook with the expected header row and
// one example booking.
func (s *Service) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = "Bookings"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(Fields))
	for i, field := range Fields {
		header[i] = TemplateHeaders[field]
	}
	example := []any{"Beach House", "2025-01-10", "2025-01-14", "Jane Doe", "jane@example.com", string(StatusConfirmed)}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return nil, fmt.Errorf("write example: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
