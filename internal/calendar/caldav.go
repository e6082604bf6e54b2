package calendar

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// tagPropPrefix is the iCalendar property name prefix under which tags are
// stored. Property names are case-insensitive on the wire, so tag keys are
// lowercased when read back; keys must therefore be lowercase.
const tagPropPrefix = "X-FEEDCAL-TAG-"

// CalDAVStore is a Store backed by a CalDAV collection (e.g. iCloud,
// Radicale). Events are individual .ics resources; mutations re-PUT the
// full VEVENT.
type CalDAVStore struct {
	httpClient   *http.Client
	serverURL    string
	calendarPath string
	username     string
	password     string
	loc          *time.Location

	// uid by resource path, learned at list/create time.
	uids map[string]string
}

// NewCalDAVStore creates a Store for the calendar collection at
// calendarPath on the given CalDAV server. password should be an
// app-specific password for iCloud.
func NewCalDAVStore(serverURL, calendarPath, username, password string, loc *time.Location) *CalDAVStore {
	return &CalDAVStore{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		serverURL:    strings.TrimSuffix(serverURL, "/"),
		calendarPath: strings.TrimSuffix(calendarPath, "/") + "/",
		username:     username,
		password:     password,
		loc:          loc,
		uids:         make(map[string]string),
	}
}

func (c *CalDAVStore) makeRequest(method, resourcePath string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.serverURL+resourcePath, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.username, c.password)
	switch method {
	case "REPORT", "PROPFIND":
		req.Header.Set("Content-Type", "application/xml; charset=utf-8")
		req.Header.Set("Depth", "1")
	case "PUT":
		req.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	}

	return c.httpClient.Do(req)
}

// Events lists events with start times in [min, maxExclusive) using a
// calendar-query REPORT.
func (c *CalDAVStore) Events(min, maxExclusive time.Time) ([]*Event, error) {
	query := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`,
		min.UTC().Format("20060102T150405Z"),
		maxExclusive.UTC().Format("20060102T150405Z"))

	resp, err := c.makeRequest("REPORT", c.calendarPath, strings.NewReader(query))
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, storeErrf("list events", "HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storeErr("list events", err)
	}

	resources, err := parseMultistatus(body)
	if err != nil {
		return nil, storeErr("list events", err)
	}

	var events []*Event
	for _, res := range resources {
		cal, err := ical.NewDecoder(strings.NewReader(res.calendarData)).Decode()
		if err != nil {
			return nil, storeErrf("list events", "parse %s: %v", res.href, err)
		}
		ev, uid, err := c.eventFromICal(cal)
		if err != nil {
			return nil, storeErrf("list events", "convert %s: %v", res.href, err)
		}
		ev.ID = res.href
		c.uids[res.href] = uid
		events = append(events, ev)
	}

	return events, nil
}

func (c *CalDAVStore) CreateTimedEvent(title string, start, end time.Time) (*Event, error) {
	ev := &Event{
		Title: title,
		Start: start,
		End:   end,
	}
	return ev, c.create("create timed event", ev)
}

func (c *CalDAVStore) CreateAllDayEvent(title string, date time.Time) (*Event, error) {
	return c.CreateAllDayRangeEvent(title, date, date)
}

func (c *CalDAVStore) CreateAllDayRangeEvent(title string, startDate, endDate time.Time) (*Event, error) {
	ev := &Event{
		Title:       title,
		AllDay:      true,
		AllDayStart: midnight(startDate.In(c.loc)),
		AllDayEnd:   midnight(endDate.In(c.loc)).AddDate(0, 0, 1),
	}
	return ev, c.create("create all-day event", ev)
}

func (c *CalDAVStore) create(op string, ev *Event) error {
	uid := uuid.NewString()
	href := c.calendarPath + uid + ".ics"
	ev.ID = href
	c.uids[href] = uid
	return c.put(op, ev)
}

func (c *CalDAVStore) SetTag(event *Event, key, value string) error {
	updated := *event
	updated.Tags = make(map[string]string, len(event.Tags)+1)
	for k, v := range event.Tags {
		updated.Tags[k] = v
	}
	updated.Tags[key] = value
	if err := c.put("set tag", &updated); err != nil {
		return err
	}
	event.Tags = updated.Tags
	return nil
}

func (c *CalDAVStore) SetTitle(event *Event, title string) error {
	updated := *event
	updated.Title = title
	if err := c.put("set title", &updated); err != nil {
		return err
	}
	event.Title = title
	return nil
}

func (c *CalDAVStore) SetDescription(event *Event, description string) error {
	updated := *event
	updated.Description = description
	if err := c.put("set description", &updated); err != nil {
		return err
	}
	event.Description = description
	return nil
}

func (c *CalDAVStore) SetTime(event *Event, start, end time.Time) error {
	updated := *event
	updated.AllDay = false
	updated.Start = start
	updated.End = end
	updated.AllDayStart = time.Time{}
	updated.AllDayEnd = time.Time{}
	if err := c.put("set time", &updated); err != nil {
		return err
	}
	*event = updated
	return nil
}

func (c *CalDAVStore) SetAllDayDate(event *Event, date time.Time) error {
	return c.SetAllDayDates(event, date, date)
}

func (c *CalDAVStore) SetAllDayDates(event *Event, startDate, endDate time.Time) error {
	updated := *event
	updated.AllDay = true
	updated.AllDayStart = midnight(startDate.In(c.loc))
	updated.AllDayEnd = midnight(endDate.In(c.loc)).AddDate(0, 0, 1)
	updated.Start = time.Time{}
	updated.End = time.Time{}
	if err := c.put("set all-day dates", &updated); err != nil {
		return err
	}
	*event = updated
	return nil
}

func (c *CalDAVStore) DeleteEvent(event *Event) error {
	resp, err := c.makeRequest("DELETE", event.ID, nil)
	if err != nil {
		return storeErr("delete event", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return storeErrf("delete event", "HTTP %d", resp.StatusCode)
	}
	delete(c.uids, event.ID)
	return nil
}

// put serializes ev as a single-VEVENT calendar and writes it to the
// event's resource path.
func (c *CalDAVStore) put(op string, ev *Event) error {
	uid := c.uids[ev.ID]
	if uid == "" {
		uid = strings.TrimSuffix(path.Base(ev.ID), ".ics")
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(c.eventToICal(ev, uid)); err != nil {
		return storeErr(op, err)
	}

	resp, err := c.makeRequest("PUT", ev.ID, &buf)
	if err != nil {
		return storeErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return storeErrf(op, "HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *CalDAVStore) eventToICal(ev *Event, uid string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//feedcal//EN")

	vevent := ical.NewComponent(ical.CompEvent)
	cal.Children = append(cal.Children, vevent)

	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}

	if ev.AllDay {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(ev.AllDayStart)
		vevent.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(ev.AllDayEnd)
		vevent.Props.Set(dtend)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
	}

	for key, value := range ev.Tags {
		vevent.Props.SetText(tagPropPrefix+strings.ToUpper(key), value)
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
	return cal
}

// eventFromICal converts the first VEVENT of cal into an Event, returning
// the event's UID alongside.
func (c *CalDAVStore) eventFromICal(cal *ical.Calendar) (*Event, string, error) {
	var vevent *ical.Component
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			vevent = comp
			break
		}
	}
	if vevent == nil {
		return nil, "", fmt.Errorf("no VEVENT found")
	}

	uid := ""
	if p := vevent.Props.Get(ical.PropUID); p != nil {
		uid = p.Value
	}

	ev := &Event{}
	if p := vevent.Props.Get(ical.PropSummary); p != nil {
		ev.Title = p.Value
	}
	if p := vevent.Props.Get(ical.PropDescription); p != nil {
		if text, err := p.Text(); err == nil {
			ev.Description = text
		}
	}

	dtstart := vevent.Props.Get(ical.PropDateTimeStart)
	dtend := vevent.Props.Get(ical.PropDateTimeEnd)
	if dtstart == nil || dtend == nil {
		return nil, "", fmt.Errorf("event %s has no start or end", uid)
	}

	start, err := dtstart.DateTime(c.loc)
	if err != nil {
		return nil, "", fmt.Errorf("event %s: bad DTSTART: %w", uid, err)
	}
	end, err := dtend.DateTime(c.loc)
	if err != nil {
		return nil, "", fmt.Errorf("event %s: bad DTEND: %w", uid, err)
	}

	if dtstart.Params.Get(ical.ParamValue) == "DATE" {
		ev.AllDay = true
		ev.AllDayStart = start
		ev.AllDayEnd = end
	} else {
		ev.Start = start
		ev.End = end
	}

	for name, props := range vevent.Props {
		if !strings.HasPrefix(name, tagPropPrefix) || len(props) == 0 {
			continue
		}
		if ev.Tags == nil {
			ev.Tags = make(map[string]string)
		}
		key := strings.ToLower(strings.TrimPrefix(name, tagPropPrefix))
		ev.Tags[key] = props[0].Value
	}

	return ev, uid, nil
}

type caldavResource struct {
	href         string
	calendarData string
}

// parseMultistatus extracts resource hrefs and their calendar-data from a
// CalDAV REPORT response.
func parseMultistatus(body []byte) ([]caldavResource, error) {
	type calendarData struct {
		Data string `xml:",chardata"`
	}
	type prop struct {
		CalendarData calendarData `xml:"calendar-data"`
	}
	type response struct {
		Href string `xml:"href"`
		Prop prop   `xml:"propstat>prop"`
	}
	type multistatus struct {
		Responses []response `xml:"response"`
	}

	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	var resources []caldavResource
	for _, resp := range ms.Responses {
		if resp.Prop.CalendarData.Data == "" {
			continue
		}
		resources = append(resources, caldavResource{
			href:         resp.Href,
			calendarData: resp.Prop.CalendarData.Data,
		})
	}
	return resources, nil
}
