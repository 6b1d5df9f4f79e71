// Package google integrates with Google Calendar: a pure "add to
// calendar" link builder for client messages and an optional API sync
// that mirrors confirmed appointments into the master's calendar.
package google

import (
	"net/url"
	"time"
)

const renderBaseURL = "https://www.google.com/calendar/render"

// CalendarLink builds a Google Calendar event-template URL for the
// given event. Instants must be UTC; the link encodes them with the Z
// suffix so the calendar app localizes them itself.
func CalendarLink(title string, start, end time.Time, description, location string) string {
	const stamp = "20060102T150405Z"

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", title)
	params.Set("dates", start.UTC().Format(stamp)+"/"+end.UTC().Format(stamp))
	if description != "" {
		params.Set("details", description)
	}
	if location != "" {
		params.Set("location", location)
	}

	return renderBaseURL + "?" + params.Encode()
}
