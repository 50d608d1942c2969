package calendar

import (
	"strings"
	"time"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/telegram"
)

// Target selects the output dialect
type Target int

const (
	TargetConsole Target = iota
	TargetTelegram
)

const (
	// DaySectionMarker opens every date section; Telegram chunking cuts before it
	DaySectionMarker = "\n📆"

	headingLayout = "Monday, 02 January 2006"
	impactLegend  = "Impact: 🔴 High   🟠 Medium   🟢 Low"
	noEventsText  = "No economic events found."
)

// FormatOptions controls rendering
type FormatOptions struct {
	GroupByCurrency bool
	Target          Target
	AllCurrencies   bool
	StripQualifiers bool
	// Date (YYYY-MM-DD) names the queried day in the "no events" heading; today when empty
	Date string
}

// Formatter renders normalized events for console or Telegram
type Formatter struct {
	Location *time.Location
	Now      func() time.Time
}

// NewFormatter creates a formatter for the display zone
func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{Location: loc, Now: time.Now}
}

// Format renders events, which are expected to be sorted by (Date, Time).
// An empty list renders a fixed "no events" message instead of an empty string.
func (f *Formatter) Format(events []domain.Event, opts FormatOptions) string {
	html := opts.Target == TargetTelegram
	now := f.now()

	if len(events) == 0 {
		heading := now.Format(headingLayout)
		if opts.Date != "" {
			heading = dayHeading(opts.Date)
		}
		title := "Economic Calendar for " + heading
		if html {
			title = telegram.Bold(title)
		}
		return "📅 " + title + "\n\n" + noEventsText
	}

	var b strings.Builder
	if html {
		heading := "ECONOMIC EVENTS FOR MAJOR CURRENCIES"
		if opts.AllCurrencies {
			heading = "ALL ECONOMIC EVENTS"
		}
		b.WriteString("📅 " + telegram.Bold(heading) + "\n")
		b.WriteString("Timezone: " + f.zoneLabel() + " (current time: " + now.Format(domain.TimeLayout) + ")\n")
	} else {
		b.WriteString("📅 Economic Calendar (" + f.zoneLabel() + ")\n")
	}
	b.WriteString(impactLegend + "\n")

	for _, day := range groupByDate(events) {
		section := DaySectionMarker + " " + dayHeading(day.date)
		if html {
			section = DaySectionMarker + " " + telegram.Bold(dayHeading(day.date))
		}
		b.WriteString(section + "\n")

		if opts.GroupByCurrency {
			f.writeGrouped(&b, day.events, opts)
		} else {
			for _, ev := range day.events {
				f.writeLine(&b, ev, opts, true)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (f *Formatter) writeGrouped(b *strings.Builder, events []domain.Event, opts FormatOptions) {
	byCurrency := map[string][]domain.Event{}
	var order []string
	for _, ev := range events {
		if _, seen := byCurrency[ev.Currency]; !seen {
			order = append(order, ev.Currency)
		}
		byCurrency[ev.Currency] = append(byCurrency[ev.Currency], ev)
	}

	write := func(ccy string) {
		b.WriteString(domain.Flag(ccy) + " " + ccy + "\n")
		for _, ev := range byCurrency[ccy] {
			f.writeLine(b, ev, opts, false)
		}
		b.WriteString("\n")
	}

	for _, ccy := range domain.MajorCurrencies {
		if _, ok := byCurrency[ccy]; ok {
			write(ccy)
		}
	}
	for _, ccy := range order {
		if !domain.IsMajor(ccy) {
			write(ccy)
		}
	}
}

// writeLine renders "HH:MM - <flag> CCY - <emoji> <title> (F: x, P: y, A: z) [Est]".
// Grouped lines are indented and omit the currency.
func (f *Formatter) writeLine(b *strings.Builder, ev domain.Event, opts FormatOptions, withCurrency bool) {
	html := opts.Target == TargetTelegram
	esc := func(s string) string {
		if html {
			return telegram.EscapeHTML(s)
		}
		return s
	}

	title := ev.Title
	if opts.StripQualifiers {
		title = StripQualifiers(title)
	}

	var line strings.Builder
	if withCurrency {
		line.WriteString(ev.Time + " - " + domain.Flag(ev.Currency) + " " + ev.Currency + " - ")
	} else {
		line.WriteString("  " + ev.Time + " - ")
	}
	line.WriteString(ev.Impact.Emoji() + " " + esc(title))

	var extra []string
	if ev.Forecast != "" {
		extra = append(extra, "F: "+esc(ev.Forecast))
	}
	if ev.Previous != "" {
		extra = append(extra, "P: "+esc(ev.Previous))
	}
	if ev.Actual != "" {
		extra = append(extra, "A: "+esc(ev.Actual))
	}
	if len(extra) > 0 {
		line.WriteString(" (" + strings.Join(extra, ", ") + ")")
	}
	if ev.Estimated {
		line.WriteString(" [Est]")
	}

	text := line.String()
	if html && ev.Impact == domain.ImpactHigh {
		text = telegram.Bold(text)
	}
	b.WriteString(text + "\n")

	if html && ev.Enrichment != nil && ev.Enrichment.MarketImpact != "" {
		b.WriteString("    ↳ " + telegram.Italic(esc(ev.Enrichment.MarketImpact)) + "\n")
	}
}

func (f *Formatter) now() time.Time {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if f.Location != nil {
		return now().In(f.Location)
	}
	return now()
}

func (f *Formatter) zoneLabel() string {
	if f.Location == nil {
		return "UTC"
	}
	return f.Location.String()
}

type dayEvents struct {
	date   string
	events []domain.Event
}

func groupByDate(events []domain.Event) []dayEvents {
	var days []dayEvents
	for _, ev := range events {
		if len(days) == 0 || days[len(days)-1].date != ev.Date {
			days = append(days, dayEvents{date: ev.Date})
		}
		days[len(days)-1].events = append(days[len(days)-1].events, ev)
	}
	return days
}

func dayHeading(date string) string {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(headingLayout)
}

// SplitForTelegram chunks rendered Telegram text at date sections
func SplitForTelegram(text string) []string {
	return telegram.Split(text, telegram.SafeMessageLength, DaySectionMarker)
}
