package sync

import (
	"strings"
	"time"

	"feedcal/internal/calendar"
	"feedcal/internal/feed"
)

// All comparison and display in one run renders through these two
// functions, in the syncer's fixed zone.

func (s *Syncer) formatDate(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

func (s *Syncer) formatDateTime(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04:05")
}

// inclusiveEnd converts an all-day event's exclusive end boundary to the
// inclusive end date it represents.
func inclusiveEnd(exclusive time.Time) time.Time {
	return exclusive.Add(-time.Second)
}

func (s *Syncer) formatItem(item feed.Item) string {
	desc := item.Description
	if desc == "" {
		desc = "-"
	}
	return strings.Join([]string{
		item.Title,
		desc,
		s.formatDate(item.Start),
		"...",
		s.formatDate(item.End),
	}, " ")
}

func (s *Syncer) formatEvent(event *calendar.Event) string {
	desc := event.Description
	if desc == "" {
		desc = "*"
	}
	start, end := event.Start, event.End
	if event.AllDay {
		start = event.AllDayStart
		end = inclusiveEnd(event.AllDayEnd)
	}
	return strings.Join([]string{
		event.Title,
		desc,
		s.formatDate(start),
		"...",
		s.formatDate(end),
	}, " ")
}
