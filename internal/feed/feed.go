// Package feed downloads and validates the authoritative event feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is one authoritative record from the feed. Items are immutable and
// rebuilt from scratch on every fetch.
type Item struct {
	ID          string
	Title       string
	Description string
	AllDay      bool
	Start       time.Time
	End         time.Time // inclusive, also for all-day ranges
}

// Feed is the fetched snapshot: the covered date range plus the items
// within it.
type Feed struct {
	Start time.Time
	End   time.Time
	Items []Item
}

// FetchError wraps a network, HTTP, or schema failure while fetching the
// feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads and parses the JSON event feed.
type Fetcher struct {
	client HTTPClient
	url    string
	loc    *time.Location
}

// NewFetcher creates a Fetcher for the given feed URL. Date-only values in
// the feed are interpreted in loc.
func NewFetcher(client HTTPClient, url string, loc *time.Location) *Fetcher {
	return &Fetcher{
		client: client,
		url:    url,
		loc:    loc,
	}
}

// jsonFeed is the wire format of the feed:
//
//	{ "start": ..., "end": ..., "events": [
//	    { "id": ..., "title": ..., "description": ..., "noTime": ..., "start": ..., "end": ... } ] }
type jsonFeed struct {
	Start  *string     `json:"start"`
	End    *string     `json:"end"`
	Events []jsonEvent `json:"events"`
}

type jsonEvent struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	NoTime      *bool   `json:"noTime"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
}

// Fetch downloads the feed and validates it against the schema. Any entry
// missing a required field is rejected rather than propagated
// half-populated; only the id may be empty, which excludes the entry from
// reconciliation later.
func (f *Fetcher) Fetch(ctx context.Context) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}

	feed, err := f.parse(body)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	return feed, nil
}

func (f *Fetcher) parse(body []byte) (*Feed, error) {
	var raw jsonFeed
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if raw.Start == nil || raw.End == nil {
		return nil, fmt.Errorf("feed is missing start or end")
	}

	start, err := f.parseTime(*raw.Start)
	if err != nil {
		return nil, fmt.Errorf("feed start: %w", err)
	}
	end, err := f.parseTime(*raw.End)
	if err != nil {
		return nil, fmt.Errorf("feed end: %w", err)
	}

	feed := &Feed{
		Start: start,
		End:   end,
		Items: make([]Item, 0, len(raw.Events)),
	}

	for i, ev := range raw.Events {
		item, err := f.parseEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("feed event %d: %w", i, err)
		}
		feed.Items = append(feed.Items, item)
	}

	return feed, nil
}

func (f *Fetcher) parseEvent(ev jsonEvent) (Item, error) {
	if ev.Title == nil {
		return Item{}, fmt.Errorf("missing title")
	}
	if ev.Description == nil {
		return Item{}, fmt.Errorf("missing description")
	}
	if ev.NoTime == nil {
		return Item{}, fmt.Errorf("missing noTime")
	}
	if ev.Start == nil || ev.End == nil {
		return Item{}, fmt.Errorf("missing start or end")
	}

	start, err := f.parseTime(*ev.Start)
	if err != nil {
		return Item{}, fmt.Errorf("start: %w", err)
	}
	end, err := f.parseTime(*ev.End)
	if err != nil {
		return Item{}, fmt.Errorf("end: %w", err)
	}

	return Item{
		ID:          ev.ID,
		Title:       *ev.Title,
		Description: *ev.Description,
		AllDay:      *ev.NoTime,
		Start:       start,
		End:         end,
	}, nil
}

// parseTime accepts either a full RFC 3339 timestamp or a bare date; bare
// dates are anchored at midnight in the fetcher's zone.
func (f *Fetcher) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, f.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}
