package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/phpdave11/gofpdf"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

// Format is an export target for a generated itinerary.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
	FormatICS Format = "ics"
)

// ParseFormat validates a format query value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatICS:
		return FormatICS, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", types.ErrBadRequest, s)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// clock layouts the model tends to produce in the activity time slot.
var timeSlotLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM"}

// RenderCSV writes one row per activity with its day context.
func RenderCSV(w io.Writer, it *types.Itinerary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "day_title", "time", "activity", "location", "description", "estimated_cost"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, day := range it.Days {
		for _, a := range day.Activities {
			cost := ""
			if a.EstimatedCost != nil {
				cost = strconv.FormatFloat(*a.EstimatedCost, 'f', 2, 64)
			}
			row := []string{
				strconv.Itoa(day.Day), day.Title,
				a.Time, a.Activity, a.Location, a.Description, cost,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderPDF writes a printable day-by-day itinerary.
func RenderPDF(w io.Writer, it *types.Itinerary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(it.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, it.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s, %d days", it.Destination, it.DurationDays), "", 1, "L", false, 0, "")
	if it.Lodging != nil {
		pdf.CellFormat(0, 7, fmt.Sprintf("Staying at %s, %s", it.Lodging.Name, it.Lodging.Location), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, day := range it.Days {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, fmt.Sprintf("Day %d: %s", day.Day, day.Title), "", 1, "L", false, 0, "")
		for _, a := range day.Activities {
			pdf.SetFont("Helvetica", "B", 11)
			header := fmt.Sprintf("%s  %s", a.Time, a.Activity)
			if a.EstimatedCost != nil {
				header = fmt.Sprintf("%s (%.2f)", header, *a.EstimatedCost)
			}
			pdf.CellFormat(0, 6, header, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "I", 10)
			pdf.CellFormat(0, 5, a.Location, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, a.Description, "", "L", false)
			pdf.Ln(2)
		}
		pdf.Ln(3)
	}

	return pdf.Output(w)
}

// RenderICS writes one calendar event per activity. Day N maps to start
// plus N-1 days; an unparseable time slot becomes an all-day event.
func RenderICS(w io.Writer, it *types.Itinerary, start time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Lakbay//Itinerary//EN")

	for _, day := range it.Days {
		date := start.AddDate(0, 0, day.Day-1)
		for i, a := range day.Activities {
			event := cal.AddEvent(fmt.Sprintf("%s-%d-%d@lakbay", it.ID, day.Day, i))
			event.SetCreatedTime(time.Now())
			event.SetSummary(a.Activity)
			event.SetLocation(a.Location)
			event.SetDescription(a.Description)

			if slot, ok := parseTimeSlot(a.Time); ok {
				begin := time.Date(date.Year(), date.Month(), date.Day(), slot.Hour(), slot.Minute(), 0, 0, date.Location())
				event.SetStartAt(begin)
				event.SetEndAt(begin.Add(time.Hour))
			} else {
				event.SetAllDayStartAt(date)
				event.SetAllDayEndAt(date.AddDate(0, 0, 1))
			}
		}
	}

	return cal.SerializeTo(w)
}

func parseTimeSlot(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	// "09:00 - 11:00" style slots: try the start of the range.
	if idx := strings.IndexAny(s, "-–"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	for _, layout := range timeSlotLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
