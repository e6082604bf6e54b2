package sync

import (
	"feedcal/internal/calendar"
	"feedcal/internal/feed"
)

// mapItemsByID maps feed items by id. The tie-break is stable and
// input-order based: the first item per id (feed order) wins and later
// duplicates are dropped. Items with an empty id are excluded from
// reconciliation entirely.
func mapItemsByID(items []feed.Item) map[string]feed.Item {
	mapped := make(map[string]feed.Item, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := mapped[item.ID]; ok {
			continue
		}
		mapped[item.ID] = item
	}
	return mapped
}

// mapEventsByTag maps calendar events by the identity tag under tagKey.
// Events without the tag are ignored and never touched. The first event
// per id (input order) is kept as canonical; every later event carrying
// the same id is returned in dups for unconditional deletion.
func mapEventsByTag(events []*calendar.Event, tagKey string) (map[string]*calendar.Event, []*calendar.Event) {
	mapped := make(map[string]*calendar.Event, len(events))
	var dups []*calendar.Event
	for _, event := range events {
		id := event.Tag(tagKey)
		if id == "" {
			continue
		}
		if _, ok := mapped[id]; ok {
			dups = append(dups, event)
			continue
		}
		mapped[id] = event
	}
	return mapped, dups
}
