// Package core provides the business logic for booking spreadsheet imports.
//
// This package has no transport dependencies. Storage is reached only through
// the [PropertyDirectory] and [BookingRepository] interfaces, so web handlers,
// CLI tools and tests all drive the same code.
//
// # Workflow
//
// An import runs in up to two calls with no server-side session in between:
//
//  1. [Importer.DetectAndImport] reads the sheet, validates every row,
//     resolves property names and commits each row that does not overlap an
//     existing booking of the same property. Overlapping rows come back as
//     one [Conflict] per overlapped booking, keyed by [ConflictKey], plus
//     pending candidates keyed by [CandidateKey].
//  2. [Importer.ResolveConflicts] takes the same file (or the pending
//     candidates) and a map of conflict key to [ActionOverwrite] or
//     [ActionSkip], detects again and applies the decisions. An overwrite
//     replaces only the booking named by its key.
//
// Stays are half-open intervals: check-out day is free for the next check-in.
//
// # Sources
//
// XLSX workbooks and CSV files are accepted. Sheets are chosen by name,
// case-insensitively; headers are matched through a synonym table
// ([HeaderMap]) that can be extended from configuration.
//
// # Error Handling
//
// Problems with individual rows never abort an import; they are collected in
// [ImportReport.Errors]. Only an unreadable source or a missing sheet stops
// an import before any row is processed. Technical errors are mapped to
// operator messages with support codes by [MapError].
package core
