// Package sync reconciles the authoritative feed snapshot against a
// mutable calendar store so the calendar converges to match the feed.
package sync

import (
	"context"
	"log"
	"sort"
	"time"

	"feedcal/internal/calendar"
	"feedcal/internal/feed"
)

// Source provides the authoritative feed snapshot.
type Source interface {
	Fetch(ctx context.Context) (*feed.Feed, error)
}

// Syncer runs one reconciliation pass: fetch the feed, list the calendar,
// and issue the create/update/delete calls that make the calendar match.
//
// A pass is idempotent. Provider failures abort the pass at the point of
// failure with no rollback; re-running recomputes the remaining diff, so
// the operational recovery for a failed run is simply to run again.
type Syncer struct {
	source  Source
	store   calendar.Store
	tagKey  string
	loc     *time.Location
	verbose bool
}

// NewSyncer creates a Syncer. tagKey is the identity tag key under which
// feed item ids are attached to calendar events; loc is the fixed zone
// used for all comparison and display.
func NewSyncer(source Source, store calendar.Store, tagKey string, loc *time.Location, verbose bool) *Syncer {
	return &Syncer{
		source:  source,
		store:   store,
		tagKey:  tagKey,
		loc:     loc,
		verbose: verbose,
	}
}

// Sync performs one reconciliation pass.
func (s *Syncer) Sync(ctx context.Context) error {
	snapshot, err := s.source.Fetch(ctx)
	if err != nil {
		return err
	}

	items := mapItemsByID(snapshot.Items)
	log.Printf("fetched %d feed items", len(items))

	// Query one day past the feed range so all-day events ending on the
	// range boundary are included.
	listed, err := s.store.Events(snapshot.Start, snapshot.End.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	events, dups := mapEventsByTag(listed, s.tagKey)
	log.Printf("fetched %d calendar events", len(events))

	return s.reconcile(items, events, dups)
}

// reconcile walks the union of ids and classifies each into exactly one of
// delete, create, or update (possibly a no-op), then deletes every
// duplicate unconditionally. Ids are processed in sorted order so logs are
// deterministic; the order does not affect the outcome.
func (s *Syncer) reconcile(items map[string]feed.Item, events map[string]*calendar.Event, dups []*calendar.Event) error {
	ids := make([]string, 0, len(items)+len(events))
	for id := range items {
		ids = append(ids, id)
	}
	for id := range events {
		if _, ok := items[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		item, hasItem := items[id]
		event, hasEvent := events[id]

		switch {
		case !hasItem && hasEvent:
			log.Printf("delete: %s", s.formatEvent(event))
			if err := s.store.DeleteEvent(event); err != nil {
				return err
			}

		case hasItem && !hasEvent:
			log.Printf("new: %s", s.formatItem(item))
			if err := s.createEvent(item); err != nil {
				return err
			}

		default:
			if s.equal(item, event) {
				continue
			}
			log.Printf("update: %s -> %s", s.formatItem(item), s.formatEvent(event))
			if err := s.updateEvent(item, event); err != nil {
				return err
			}
		}
	}

	for _, event := range dups {
		log.Printf("delete: %s", s.formatEvent(event))
		if err := s.store.DeleteEvent(event); err != nil {
			return err
		}
	}

	return nil
}

// createEvent creates a calendar event for an item that has none, tags it
// with the item's id, and sets the description only when non-empty. An
// empty description is left unset on create, unlike the update path which
// always overwrites it.
func (s *Syncer) createEvent(item feed.Item) error {
	var (
		event *calendar.Event
		err   error
	)
	switch {
	case !item.AllDay:
		event, err = s.store.CreateTimedEvent(item.Title, item.Start, item.End)
	case s.formatDate(item.Start) == s.formatDate(item.End):
		event, err = s.store.CreateAllDayEvent(item.Title, item.Start)
	default:
		event, err = s.store.CreateAllDayRangeEvent(item.Title, item.Start, item.End)
	}
	if err != nil {
		return err
	}

	if err := s.store.SetTag(event, s.tagKey, item.ID); err != nil {
		return err
	}
	if item.Description != "" {
		if err := s.store.SetDescription(event, item.Description); err != nil {
			return err
		}
	}
	return nil
}

// updateEvent rewrites the event from the item. Title and description are
// always set, including clearing the description to empty, then the time
// representation is set according to the item's shape.
func (s *Syncer) updateEvent(item feed.Item, event *calendar.Event) error {
	if err := s.store.SetTitle(event, item.Title); err != nil {
		return err
	}
	if err := s.store.SetDescription(event, item.Description); err != nil {
		return err
	}

	if !item.AllDay {
		return s.store.SetTime(event, item.Start, item.End)
	}
	if s.formatDate(item.Start) == s.formatDate(item.End) {
		return s.store.SetAllDayDate(event, item.Start)
	}
	return s.store.SetAllDayDates(event, item.Start, item.End)
}

func (s *Syncer) debugf(format string, args ...any) {
	if s.verbose {
		log.Printf("DEBUG: "+format, args...)
	}
}
