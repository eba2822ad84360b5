// Package views renders the HTMX fragments returned by the import endpoints.
//
// Components live in .templ files; run `templ generate` after editing them.
package views

import (
	"fmt"
	"strconv"

	"github.com/aristay/bookingimport/internal/core"
)

func reportStatus(r *core.ImportReport) string {
	if r.Success {
		return "import-ok"
	}
	return "import-attention"
}

func count(n int) string {
	return strconv.Itoa(n)
}

// rowLabel prints "-" for errors that concern the whole source.
func rowLabel(row int) string {
	if row < 1 {
		return "-"
	}
	return strconv.Itoa(row)
}

func stay(d core.DateRange) string {
	nights := "nights"
	if d.Nights() == 1 {
		nights = "night"
	}
	return fmt.Sprintf("%s to %s (%d %s)",
		d.CheckIn.Format(core.DateLayout), d.CheckOut.Format(core.DateLayout), d.Nights(), nights)
}

func existingLabel(c core.Conflict) string {
	return fmt.Sprintf("#%d %s (%s to %s)", c.ExistingBookingID, c.ExistingGuest,
		c.ExistingDates.CheckIn.Format(core.DateLayout), c.ExistingDates.CheckOut.Format(core.DateLayout))
}
