package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleStore is a Store backed by the Google Calendar API, bound to a
// single calendar.
type GoogleStore struct {
	service    *gcal.Service
	calendarID string
	loc        *time.Location
}

// NewGoogleStore creates a Store for the given calendar using the provided
// authenticated HTTP client. Date-only values returned by the API are
// interpreted in loc.
func NewGoogleStore(ctx context.Context, httpClient *http.Client, calendarID string, loc *time.Location) (*GoogleStore, error) {
	service, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleStore{
		service:    service,
		calendarID: calendarID,
		loc:        loc,
	}, nil
}

// Events lists events with start times in [min, maxExclusive).
// Sets SingleEvents = true so recurring events arrive as instances.
func (g *GoogleStore) Events(min, maxExclusive time.Time) ([]*Event, error) {
	var events []*Event
	pageToken := ""
	for {
		call := g.service.Events.List(g.calendarID).
			TimeMin(min.Format(time.RFC3339)).
			TimeMax(maxExclusive.Format(time.RFC3339)).
			SingleEvents(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, storeErr("list events", err)
		}

		for _, item := range list.Items {
			ev, err := g.eventFromAPI(item)
			if err != nil {
				return nil, storeErr("list events", err)
			}
			events = append(events, ev)
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}

func (g *GoogleStore) CreateTimedEvent(title string, start, end time.Time) (*Event, error) {
	created, err := g.service.Events.Insert(g.calendarID, &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).SendUpdates("none").Do()
	if err != nil {
		return nil, storeErr("create timed event", err)
	}
	return g.eventFromAPI(created)
}

func (g *GoogleStore) CreateAllDayEvent(title string, date time.Time) (*Event, error) {
	return g.createAllDay("create all-day event", title, date, date)
}

func (g *GoogleStore) CreateAllDayRangeEvent(title string, startDate, endDate time.Time) (*Event, error) {
	return g.createAllDay("create all-day range event", title, startDate, endDate)
}

// createAllDay creates an all-day event over [startDate, endDate]
// inclusive, converting to the API's exclusive end date.
func (g *GoogleStore) createAllDay(op, title string, startDate, endDate time.Time) (*Event, error) {
	created, err := g.service.Events.Insert(g.calendarID, &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{Date: startDate.In(g.loc).Format("2006-01-02")},
		End:     &gcal.EventDateTime{Date: endDate.In(g.loc).AddDate(0, 0, 1).Format("2006-01-02")},
	}).SendUpdates("none").Do()
	if err != nil {
		return nil, storeErr(op, err)
	}
	return g.eventFromAPI(created)
}

func (g *GoogleStore) SetTag(event *Event, key, value string) error {
	patch := &gcal.Event{
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{key: value},
		},
	}
	if err := g.patch("set tag", event.ID, patch); err != nil {
		return err
	}
	if event.Tags == nil {
		event.Tags = make(map[string]string)
	}
	event.Tags[key] = value
	return nil
}

func (g *GoogleStore) SetTitle(event *Event, title string) error {
	patch := &gcal.Event{Summary: title, ForceSendFields: []string{"Summary"}}
	if err := g.patch("set title", event.ID, patch); err != nil {
		return err
	}
	event.Title = title
	return nil
}

func (g *GoogleStore) SetDescription(event *Event, description string) error {
	patch := &gcal.Event{Description: description, ForceSendFields: []string{"Description"}}
	if err := g.patch("set description", event.ID, patch); err != nil {
		return err
	}
	event.Description = description
	return nil
}

func (g *GoogleStore) SetTime(event *Event, start, end time.Time) error {
	patch := &gcal.Event{
		Start: &gcal.EventDateTime{
			DateTime:   start.Format(time.RFC3339),
			NullFields: []string{"Date"},
		},
		End: &gcal.EventDateTime{
			DateTime:   end.Format(time.RFC3339),
			NullFields: []string{"Date"},
		},
	}
	if err := g.patch("set time", event.ID, patch); err != nil {
		return err
	}
	event.AllDay = false
	event.Start = start
	event.End = end
	event.AllDayStart = time.Time{}
	event.AllDayEnd = time.Time{}
	return nil
}

func (g *GoogleStore) SetAllDayDate(event *Event, date time.Time) error {
	return g.setAllDay("set all-day date", event, date, date)
}

func (g *GoogleStore) SetAllDayDates(event *Event, startDate, endDate time.Time) error {
	return g.setAllDay("set all-day dates", event, startDate, endDate)
}

func (g *GoogleStore) setAllDay(op string, event *Event, startDate, endDate time.Time) error {
	start := startDate.In(g.loc)
	endExclusive := endDate.In(g.loc).AddDate(0, 0, 1)
	patch := &gcal.Event{
		Start: &gcal.EventDateTime{
			Date:       start.Format("2006-01-02"),
			NullFields: []string{"DateTime"},
		},
		End: &gcal.EventDateTime{
			Date:       endExclusive.Format("2006-01-02"),
			NullFields: []string{"DateTime"},
		},
	}
	if err := g.patch(op, event.ID, patch); err != nil {
		return err
	}
	event.AllDay = true
	event.AllDayStart = midnight(start)
	event.AllDayEnd = midnight(endExclusive)
	event.Start = time.Time{}
	event.End = time.Time{}
	return nil
}

func (g *GoogleStore) DeleteEvent(event *Event) error {
	err := g.service.Events.Delete(g.calendarID, event.ID).
		SendUpdates("none").
		Do()
	if err != nil {
		return storeErr("delete event", err)
	}
	return nil
}

func (g *GoogleStore) patch(op, eventID string, patch *gcal.Event) error {
	_, err := g.service.Events.Patch(g.calendarID, eventID, patch).
		SendUpdates("none").
		Do()
	if err != nil {
		return storeErr(op, err)
	}
	return nil
}

// eventFromAPI converts an API event into the provider-neutral Event.
// All-day events carry date-only values, interpreted in the store's zone.
func (g *GoogleStore) eventFromAPI(item *gcal.Event) (*Event, error) {
	ev := &Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
	}

	if item.ExtendedProperties != nil && len(item.ExtendedProperties.Private) > 0 {
		ev.Tags = make(map[string]string, len(item.ExtendedProperties.Private))
		for k, v := range item.ExtendedProperties.Private {
			ev.Tags[k] = v
		}
	}

	if item.Start == nil || item.End == nil {
		return nil, fmt.Errorf("event %s has no start or end", item.Id)
	}

	if item.Start.Date != "" {
		ev.AllDay = true
		start, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: bad all-day start %q: %w", item.Id, item.Start.Date, err)
		}
		end, err := time.ParseInLocation("2006-01-02", item.End.Date, g.loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: bad all-day end %q: %w", item.Id, item.End.Date, err)
		}
		ev.AllDayStart = start
		ev.AllDayEnd = end
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %s: bad start %q: %w", item.Id, item.Start.DateTime, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %s: bad end %q: %w", item.Id, item.End.DateTime, err)
	}
	ev.Start = start
	ev.End = end
	return ev, nil
}

// midnight truncates t to the start of its day, keeping the location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
