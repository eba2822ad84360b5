package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aristay/bookingimport/internal/core"
)

// ImportConfig holds the booking spreadsheet import settings.
type ImportConfig struct {
	// DefaultSheet is the workbook sheet read when a request names none.
	DefaultSheet string `env:"IMPORT_DEFAULT_SHEET" default:"Bookings"`
	// DateFormats are Go layouts tried after core.DefaultDateLayouts.
	DateFormats      []string `env:"IMPORT_DATE_FORMATS"`
	HeaderSearchRows int      `env:"IMPORT_HEADER_SEARCH_ROWS" default:"20"`
	// SynonymsFile is an optional TOML table of extra header labels.
	SynonymsFile  string        `env:"IMPORT_SYNONYMS_FILE"`
	MaxFileSize   int64         `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`
	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	headers *core.HeaderMap
}

func (c ImportConfig) check() []string {
	var out []string
	if msg := sheetNameProblem(c.DefaultSheet); msg != "" {
		out = append(out, msg)
	}
	for _, layout := range c.DateFormats {
		if !validLayout(layout) {
			out = append(out, fmt.Sprintf("IMPORT_DATE_FORMATS entry %q does not carry year, month and day", layout))
		}
	}
	if c.SynonymsFile != "" {
		switch info, err := os.Stat(c.SynonymsFile); {
		case err != nil:
			out = append(out, fmt.Sprintf("IMPORT_SYNONYMS_FILE %q cannot be read: %v", c.SynonymsFile, err))
		case info.IsDir():
			out = append(out, fmt.Sprintf("IMPORT_SYNONYMS_FILE %q is a directory", c.SynonymsFile))
		}
	}
	if c.HeaderSearchRows <= 0 {
		out = append(out, "IMPORT_HEADER_SEARCH_ROWS must be positive")
	}
	if c.MaxFileSize <= 0 {
		out = append(out, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		out = append(out, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.MaxWaitTime <= 0 {
		out = append(out, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Timeout <= 0 {
		out = append(out, "IMPORT_TIMEOUT must be positive")
	}
	return out
}

// sheetNameProblem applies the workbook naming rules, plus no padding since
// sheet lookups compare trimmed names.
func sheetNameProblem(name string) string {
	if strings.TrimSpace(name) != name {
		return fmt.Sprintf("IMPORT_DEFAULT_SHEET %q has leading or trailing spaces", name)
	}
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Sprintf("IMPORT_DEFAULT_SHEET %q: %v", name, err)
	}
	return ""
}

// validLayout reports whether layout round-trips a date with year, month
// and day.
func validLayout(layout string) bool {
	ref := time.Date(2006, time.January, 2, 0, 0, 0, 0, time.UTC)
	parsed, err := time.Parse(layout, ref.Format(layout))
	return err == nil && parsed.Equal(ref)
}

// loadHeaders reads SynonymsFile into the header map shared by all imports.
func (c *ImportConfig) loadHeaders() error {
	synonyms, err := LoadSynonyms(c.SynonymsFile)
	if err != nil {
		return fmt.Errorf("IMPORT_SYNONYMS_FILE: %w", err)
	}
	headers, err := core.NewHeaderMap(synonyms)
	if err != nil {
		return fmt.Errorf("IMPORT_SYNONYMS_FILE %q: %w", c.SynonymsFile, err)
	}
	c.headers = headers
	return nil
}

// DateLayouts returns the built-in layouts followed by DateFormats.
func (c ImportConfig) DateLayouts() []string {
	return append(slices.Clone(core.DefaultDateLayouts), c.DateFormats...)
}

// Headers returns the header map built by Load, or nil for a config that
// was not loaded, which the importer treats as the built-in synonyms.
func (c ImportConfig) Headers() *core.HeaderMap {
	return c.headers
}

// ServiceConfig converts the settings into import service options.
func (c ImportConfig) ServiceConfig() core.ServiceConfig {
	return core.ServiceConfig{
		Importer: core.ImporterOptions{
			Source: core.SourceOptions{
				DefaultSheet:     c.DefaultSheet,
				HeaderSearchRows: c.HeaderSearchRows,
				Headers:          c.headers,
			},
			DateLayouts: c.DateLayouts(),
		},
		MaxConcurrent: c.MaxConcurrent,
		MaxWait:       c.MaxWaitTime,
		Timeout:       c.Timeout,
	}
}
