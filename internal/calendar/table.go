package calendar

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/telegram"
	"calendarbot/pkg/templates"
)

var tableHeader = []string{"TIME", "CCY", "IMPACT", "EVENT", "ACTUAL", "FORECAST", "PREVIOUS", "SURPRISE"}

// RenderTable writes the console table view of events
func RenderTable(w io.Writer, events []domain.Event) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(tableHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, ev := range events {
		title := ev.Title
		if ev.Estimated {
			title += " [Est]"
		}
		table.Append([]string{
			ev.Date + " " + ev.Time,
			ev.Currency,
			ev.Impact.String(),
			title,
			ev.Actual,
			ev.Forecast,
			ev.Previous,
			FormatSurprise(ev),
		})
	}

	table.Render()
}

// RenderLegacyText renders the plain-text companion file written next to the JSON cache
func RenderLegacyText(snapshot domain.Snapshot, zone string) string {
	var b strings.Builder
	b.WriteString("ForexFactory Economic Calendar for " + snapshot.Label + " (" + zone + ")\n")
	b.WriteString(strings.Repeat("=", 80) + "\n\n")

	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Time", "Currency", "Impact", "Event", "Actual", "Forecast", "Previous"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, ev := range snapshot.Events {
		table.Append([]string{ev.Time, ev.Currency, ev.Impact.String(), ev.Title, ev.Actual, ev.Forecast, ev.Previous})
	}
	table.Render()

	return b.String()
}

// FormatInstrument renders an instrument's events as a compact Telegram <pre> table
func FormatInstrument(instrument string, currencies []string, events []domain.Event) (string, error) {
	header, err := templates.Get().Render("notifications/instrument_header", map[string]any{
		"Instrument": instrument,
		"Currencies": currencies,
	})
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return header + "\n\n" + noEventsText, nil
	}

	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, ev := range events {
		table.Append([]string{ev.Time, ev.Currency, ev.Impact.Emoji(), StripQualifiers(ev.Title)})
	}
	table.Render()

	return header + "\n" + telegram.Pre(strings.TrimRight(b.String(), "\n")), nil
}
