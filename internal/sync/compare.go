package sync

import (
	"feedcal/internal/calendar"
	"feedcal/internal/feed"
)

// equal reports whether the event already reflects the item, field by
// field, short-circuiting on the first mismatch. All-day events compare by
// date only (after converting the event's exclusive end to inclusive);
// timed events compare start and end to the second. Both sides render
// through the fixed-zone formatter so the zone never skews the result.
func (s *Syncer) equal(item feed.Item, event *calendar.Event) bool {
	if item.AllDay != event.AllDay {
		s.debugf("all-day mismatch: %v != %v", item.AllDay, event.AllDay)
		return false
	}

	if item.Title != event.Title {
		s.debugf("title mismatch: %q != %q", item.Title, event.Title)
		return false
	}

	if item.Description != event.Description {
		s.debugf("description mismatch: %q != %q", item.Description, event.Description)
		return false
	}

	if item.AllDay {
		if s.formatDate(item.Start) != s.formatDate(event.AllDayStart) {
			s.debugf("all-day start mismatch: %s != %s", s.formatDate(item.Start), s.formatDate(event.AllDayStart))
			return false
		}
		end := inclusiveEnd(event.AllDayEnd)
		if s.formatDate(item.End) != s.formatDate(end) {
			s.debugf("all-day end mismatch: %s != %s", s.formatDate(item.End), s.formatDate(end))
			return false
		}
		return true
	}

	if s.formatDateTime(item.Start) != s.formatDateTime(event.Start) {
		s.debugf("start mismatch: %s != %s", s.formatDateTime(item.Start), s.formatDateTime(event.Start))
		return false
	}
	if s.formatDateTime(item.End) != s.formatDateTime(event.End) {
		s.debugf("end mismatch: %s != %s", s.formatDateTime(item.End), s.formatDateTime(event.End))
		return false
	}

	return true
}
