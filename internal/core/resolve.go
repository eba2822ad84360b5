package core

// resolve.go runs the second phase: applying operator decisions to the
// conflicts reported by DetectAndImport.
//
// There is no server-side session between the two calls. Candidates are
// rebuilt either by re-reading the same source or from the pending
// candidates of the earlier report, and every candidate is detected again
// against the current state of the repository before anything is written.
//
// Decisions are keyed per conflict, so an overwrite names the one booking
// the operator saw in the report. A booking that appeared since then is
// never replaced on the strength of an older decision.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aristay/bookingimport/internal/logging"
)

// ResolveRequest is the input of ResolveConflicts. Pending takes precedence
// over Data when both are set.
type ResolveRequest struct {
	ImportID    string
	Data        []byte
	Sheet       string
	Property    string // Same meaning as ImportRequest.Property
	Pending     []PendingCandidate
	Resolutions Resolutions
	Actor       string // Recorded as created-by or modified-by
}

// decision collects the resolutions given for one candidate.
type decision struct {
	keys      []string
	overwrite []BookingID
	skip      bool
	invalid   []string
}

// ResolveConflicts applies resolutions to the candidates of req.
//
//   - skip: the row is counted as skipped and nothing is written.
//   - overwrite: the booking named by the conflict key is replaced in place,
//     keeping its id and property, provided it is still the only booking the
//     row overlaps. With no overlap left the row is created. Any other
//     overlap holds the row back as a fresh conflict.
//   - no decision: rows without overlaps are created, rows whose only
//     overlaps are identical bookings count as skipped, the rest stay as
//     conflicts.
//
// Unsupported actions, more than one overwrite per row, and keys matching
// no candidate are invalid_resolution errors; a row with an invalid decision
// is never written. As with DetectAndImport, the returned error is non-nil
// only when ctx ends mid-run.
func (im *Importer) ResolveConflicts(ctx context.Context, req ResolveRequest) (*ImportReport, error) {
	start := time.Now()
	report := newReport(req.ImportID, ModeResolve)
	defer func() {
		report.Duration = time.Since(start)
		report.finish()
	}()

	var (
		records []BookingRecord
		ok      bool
	)
	if len(req.Pending) > 0 {
		records, ok = im.loadPending(req.Pending, report)
	} else {
		records, ok = im.load(req.Data, req.Sheet, req.Property, report)
	}
	if !ok {
		return report, nil
	}

	decisions, stale := groupResolutions(req.Resolutions)
	resolver := NewPropertyResolver(im.dir)
	log := logging.WithFields(ctx, "import_id", req.ImportID, "mode", ModeResolve)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c, ok := im.resolve(ctx, resolver, rec, report)
		if !ok {
			continue
		}

		d, decided := decisions[c.key]
		if decided {
			delete(decisions, c.key)
		}

		switch {
		case !decided:
			im.settle(ctx, c, req.Actor, report, log)
		case d.problem() != "":
			report.addError(ImportError{
				RowIndex: rec.RowIndex,
				Message:  d.problem(),
				Kind:     KindInvalidResolution,
			})
			im.reject(ctx, c, report)
		case len(d.overwrite) == 1:
			im.overwrite(ctx, c, d.overwrite[0], req.Actor, report, log)
		default:
			report.SkippedCount++
		}
	}

	for _, d := range decisions {
		stale = append(stale, d.keys...)
	}
	sort.Strings(stale)
	for _, key := range stale {
		report.addError(ImportError{
			Message: fmt.Sprintf("no candidate matches conflict %s", key),
			Kind:    KindInvalidResolution,
		})
	}

	return report, nil
}

// groupResolutions sorts resolutions by candidate. Keys that are not
// conflict keys are returned as stale.
func groupResolutions(res Resolutions) (map[string]*decision, []string) {
	decisions := make(map[string]*decision)
	var stale []string
	for key, action := range res {
		candidate, target, ok := ParseConflictKey(key)
		if !ok {
			stale = append(stale, key)
			continue
		}
		d := decisions[candidate]
		if d == nil {
			d = &decision{}
			decisions[candidate] = d
		}
		d.keys = append(d.keys, key)
		switch {
		case !action.Valid():
			d.invalid = append(d.invalid, fmt.Sprintf("unsupported resolution %q for conflict %s (use overwrite or skip)", action, key))
		case action == ActionOverwrite:
			d.overwrite = append(d.overwrite, target)
		default:
			d.skip = true
		}
	}
	for _, d := range decisions {
		sort.Strings(d.keys)
		sort.Strings(d.invalid)
		sort.Slice(d.overwrite, func(i, j int) bool { return d.overwrite[i] < d.overwrite[j] })
	}
	return decisions, stale
}

// problem explains why the decision cannot be applied, or returns "".
func (d *decision) problem() string {
	if len(d.invalid) > 0 {
		return strings.Join(d.invalid, "; ")
	}
	if len(d.overwrite) > 1 {
		ids := make([]string, len(d.overwrite))
		for i, id := range d.overwrite {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		return fmt.Sprintf("a row can overwrite one booking, got %s", strings.Join(ids, ", "))
	}
	return ""
}

// overwrite replaces target with c when target is still the only booking c
// overlaps.
func (im *Importer) overwrite(ctx context.Context, c candidate, target BookingID, actor string, report *ImportReport, log *slog.Logger) {
	existing, err := im.detector.Overlapping(ctx, c.property, c.record)
	if err != nil {
		report.addError(commitError(c.record.RowIndex, err))
		report.FailedCount++
		return
	}

	switch {
	case len(existing) == 0:
		im.commitNew(ctx, c, actor, report, log)
	case len(existing) == 1 && existing[0].ID == target:
		if err := im.repo.Update(ctx, target, c.record.Fields(), actor); err != nil {
			report.addError(commitError(c.record.RowIndex, err))
			report.FailedCount++
			return
		}
		report.ImportedCount++
		log.Debug("booking overwritten", "row", c.record.RowIndex, "booking_id", target)
	default:
		log.Debug("overwrite target changed", "row", c.record.RowIndex, "booking_id", target, "overlaps", len(existing))
		report.hold(c, existing)
	}
}

// reject keeps a candidate with an unusable decision out of the repository.
// It stays a conflict while it overlaps anything, else it counts as failed.
func (im *Importer) reject(ctx context.Context, c candidate, report *ImportReport) {
	existing, err := im.detector.Overlapping(ctx, c.property, c.record)
	if err != nil {
		report.addError(commitError(c.record.RowIndex, err))
		report.FailedCount++
		return
	}
	if len(existing) == 0 {
		report.FailedCount++
		return
	}
	report.hold(c, existing)
}

// settle handles a candidate without a decision.
func (im *Importer) settle(ctx context.Context, c candidate, actor string, report *ImportReport, log *slog.Logger) {
	existing, err := im.detector.Overlapping(ctx, c.property, c.record)
	if err != nil {
		report.addError(commitError(c.record.RowIndex, err))
		report.FailedCount++
		return
	}

	if len(existing) == 0 {
		im.commitNew(ctx, c, actor, report, log)
		return
	}
	for _, b := range existing {
		if !sameBooking(c.record, b) {
			report.hold(c, existing)
			return
		}
	}
	report.SkippedCount++
}

func (im *Importer) commitNew(ctx context.Context, c candidate, actor string, report *ImportReport, log *slog.Logger) {
	id, err := im.create(ctx, c, actor)
	if err != nil {
		report.addError(commitError(c.record.RowIndex, err))
		report.FailedCount++
		return
	}
	report.ImportedCount++
	log.Debug("booking created", "row", c.record.RowIndex, "booking_id", id, "property_id", c.property)
}

// loadPending re-validates candidates carried over from a detect report.
// They are client input and get the same checks as spreadsheet rows.
func (im *Importer) loadPending(pending []PendingCandidate, report *ImportReport) ([]BookingRecord, bool) {
	report.TotalRows = len(pending)
	records := make([]BookingRecord, 0, len(pending))
	v := NewRowValidator([]string{DateLayout})
	for i, p := range pending {
		rec, errs := v.ValidateRow(pendingRow(p.Record, i+1))
		if len(errs) > 0 {
			report.Errors = append(report.Errors, errs...)
			continue
		}
		if p.Key != "" && p.Key != CandidateKey(rec) {
			report.addError(ImportError{
				RowIndex: rec.RowIndex,
				Message:  fmt.Sprintf("pending candidate %s does not match its record", p.Key),
				Kind:     KindInvalidResolution,
			})
			continue
		}
		records = append(records, rec)
	}
	return records, true
}

// pendingRow renders a pending record as a source row. fallback is used as
// the index of records that lost theirs.
func pendingRow(rec BookingRecord, fallback int) RawRow {
	index := rec.RowIndex
	if index < 1 {
		index = fallback
	}
	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(DateLayout)
	}
	values := map[Field]string{
		FieldPropertyName: rec.PropertyName,
		FieldCheckIn:      date(rec.CheckIn),
		FieldCheckOut:     date(rec.CheckOut),
		FieldGuestName:    rec.GuestName,
		FieldGuestContact: rec.GuestContact,
		FieldStatus:       string(rec.Status),
	}
	cells := make([]Cell, len(Fields))
	for i, f := range Fields {
		cells[i] = Cell{Label: string(f), Field: f, Value: values[f]}
	}
	return RawRow{Index: index, Cells: cells}
}
