package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/bids"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/cachestore"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(chrono.Chicago()).Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatAddress(a property.Address) string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.Zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "no address"
	}
	return strings.Join(parts, ", ")
}

// summarize describes a record in one line.
func summarize(record property.Record) string {
	if record.Failed() {
		return record.Error
	}

	switch data := record.Payload.(type) {
	case *property.TaxPortalData:
		due := 0
		for _, bill := range data.TaxBills {
			if bill.Status == property.PaymentDue {
				due++
			}
		}
		return fmt.Sprintf("%s, %d bills (%d due)", formatAddress(data.Address), len(data.TaxBills), due)
	case *property.ClerkData:
		return fmt.Sprintf(
			"%d sold, %d delinquent, due %s",
			len(data.SoldTaxes), len(data.DelinquentTaxes), orDash(data.TotalAmountDue),
		)
	case *property.RecorderData:
		return fmt.Sprintf("%d documents (%s layout)", len(data.Documents), orDash(string(data.Layout)))
	case *property.GISData:
		return fmt.Sprintf(
			"centroid %.6f, %.6f, %d rings",
			data.Centroid.Lat, data.Centroid.Lng, len(data.GeographicRings),
		)
	}
	return "-"
}

func slotStatus(slot aggregate.Slot) string {
	record := slot.Record
	switch {
	case record.Failed():
		return fmt.Sprintf("error (%s)", record.ErrorCode)
	case slot.Stale:
		return "stale"
	case record.Error != "":
		return "partial"
	}
	return "ok"
}

func slotTable(w io.Writer, slots []aggregate.Slot) table.Writer {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Status", "Cached", "Fetched", "Summary"})
	for _, slot := range slots {
		cached := "no"
		if slot.Cached {
			cached = "yes"
		}
		t.AppendRow(table.Row{
			slot.Source,
			slotStatus(slot),
			cached,
			formatTime(slot.Record.FetchedAt),
			summarize(slot.Record),
		})
	}
	return t
}

func jobTable(w io.Writer, job importer.Job) table.Writer {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("import %s: %s", job.ID, job.Status))
	t.AppendHeader(table.Row{"#", "PIN", "Status", "Error"})
	for _, entry := range job.Entries {
		t.AppendRow(table.Row{entry.Position + 1, entry.PIN, entry.Status, orDash(entry.Error)})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d total", job.Total),
		fmt.Sprintf("%d complete", job.Completed),
		fmt.Sprintf("%d failed", job.Failed),
	})
	return t
}

func bidTable(w io.Writer, list []bids.Bid) table.Writer {
	t := newTable(w)
	t.AppendHeader(table.Row{"PIN", "Bid", "Overbid", "Updated"})
	for _, b := range list {
		updated := "-"
		if b.UpdatedAt != nil {
			updated = formatTime(*b.UpdatedAt)
		}
		t.AppendRow(table.Row{b.PIN, amount(b.Bid), amount(b.Overbid), updated})
	}
	return t
}

func amount(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}

func staleTable(w io.Writer, entries []cachestore.Entry, now time.Time) table.Writer {
	t := newTable(w)
	t.AppendHeader(table.Row{"PIN", "Source", "Fetched", "Age"})
	for _, e := range entries {
		age := now.Sub(e.FetchedAt).Truncate(time.Hour)
		t.AppendRow(table.Row{e.Record.PIN, e.Record.Source, formatTime(e.FetchedAt), age})
	}
	return t
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
