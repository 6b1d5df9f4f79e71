package google

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestCalendarLink(t *testing.T) {
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	link := CalendarLink("Маникюр", start, start.Add(time.Hour), "Запись", "Невский пр. 1")

	if !strings.HasPrefix(link, renderBaseURL+"?") {
		t.Fatalf("unexpected base: %s", link)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	q := parsed.Query()

	if got := q.Get("action"); got != "TEMPLATE" {
		t.Errorf("action = %q", got)
	}
	if got := q.Get("text"); got != "Маникюр" {
		t.Errorf("text = %q", got)
	}
	if got := q.Get("dates"); got != "20260303T100000Z/20260303T110000Z" {
		t.Errorf("dates = %q", got)
	}
	if got := q.Get("details"); got != "Запись" {
		t.Errorf("details = %q", got)
	}
	if got := q.Get("location"); got != "Невский пр. 1" {
		t.Errorf("location = %q", got)
	}
}

func TestCalendarLinkNormalizesToUTC(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	start := time.Date(2026, 3, 3, 13, 0, 0, 0, msk) // 10:00 UTC
	link := CalendarLink("Маникюр", start, start.Add(time.Hour), "", "")

	if !strings.Contains(link, "20260303T100000Z%2F20260303T110000Z") {
		t.Errorf("instants not normalized to UTC: %s", link)
	}
}

func TestCalendarLinkOmitsEmptyParams(t *testing.T) {
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	link := CalendarLink("Маникюр", start, start.Add(time.Hour), "", "")

	if strings.Contains(link, "details=") || strings.Contains(link, "location=") {
		t.Errorf("empty params must be omitted: %s", link)
	}
}
