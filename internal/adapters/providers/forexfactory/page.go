package forexfactory

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
)

var (
	joinedDatePattern = regexp.MustCompile(`'Joined': '(\d{4}-\d{2}-\d{2})`)
	jsonDatePattern   = regexp.MustCompile(`"date":"([A-Za-z]+ \d+, \d{4})"`)
	dayLinkPattern    = regexp.MustCompile(`day=([a-z]+)(\d+)\.(\d+)`)
)

// Page is one parsed calendar page
type Page struct {
	// Date shown by the site; zero when it could not be extracted
	Date    time.Time
	Records []domain.RawRecord
}

// ParsePage extracts the displayed date and the event rows of a calendar page.
// A page without the calendar table yields no records and no error.
func ParsePage(body []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, errors.Wrapf(errors.ErrParse, "forexfactory html: %v", err)
	}

	page := Page{Date: pageDate(doc, string(body))}

	table := doc.Find("table.calendar__table").First()
	if table.Length() == 0 {
		return page, nil
	}

	table.Find("tr.calendar__row").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("calendar__row--date") || row.HasClass("calendar__row--grey") {
			return
		}

		timeCell := row.Find(".calendar__time")
		currencyCell := row.Find(".calendar__currency")
		eventCell := row.Find(".calendar__event")
		if timeCell.Length() == 0 || currencyCell.Length() == 0 || eventCell.Length() == 0 {
			return
		}

		page.Records = append(page.Records, domain.RawRecord{
			"time":     text(timeCell),
			"currency": text(currencyCell),
			"impact":   rowImpact(row),
			"event":    text(eventCell),
			"actual":   text(row.Find(".calendar__actual")),
			"forecast": text(row.Find(".calendar__forecast")),
			"previous": text(row.Find(".calendar__previous")),
		})
	})

	return page, nil
}

func rowImpact(row *goquery.Selection) string {
	impact := row.Find(".calendar__impact")
	switch {
	case impact.Find(".calendar__impact-icon--high").Length() > 0:
		return "High"
	case impact.Find(".calendar__impact-icon--medium").Length() > 0:
		return "Medium"
	case impact.Find(".calendar__impact-icon--holiday").Length() > 0:
		return "Holiday"
	default:
		return "Low"
	}
}

// pageDate tries the embedded user script, then the JSON date, then today's day link
func pageDate(doc *goquery.Document, html string) time.Time {
	var found time.Time
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := joinedDatePattern.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		if t, err := time.Parse(domain.DateLayout, m[1]); err == nil {
			found = t
			return false
		}
		return true
	})
	if !found.IsZero() {
		return found
	}

	if m := jsonDatePattern.FindStringSubmatch(html); m != nil {
		if t, err := time.Parse("January 2, 2006", m[1]); err == nil {
			return t
		}
	}

	doc.Find(`a[href*="calendar?day="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), "today") && !strings.Contains(href, "#detail=") {
			return true
		}
		if t, ok := parseDayParam(href); ok {
			found = t
			return false
		}
		return true
	})
	return found
}

func parseDayParam(s string) (time.Time, bool) {
	m := dayLinkPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	month, err := time.Parse("Jan", strings.ToUpper(m[1][:1])+m[1][1:min(3, len(m[1]))])
	if err != nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	return time.Date(year, month.Month(), day, 0, 0, 0, 0, time.UTC), true
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}
