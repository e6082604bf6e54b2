package calendar

import (
	"fmt"
	"time"
)

// Event is the provider-neutral view of a calendar event. ID is the
// provider's opaque handle. For timed events Start/End are set; for
// all-day events AllDayStart/AllDayEnd are set instead, with AllDayEnd
// being the provider's exclusive end boundary (the first midnight after
// the event).
type Event struct {
	ID          string
	Title       string
	Description string
	AllDay      bool
	Start       time.Time
	End         time.Time
	AllDayStart time.Time
	AllDayEnd   time.Time
	Tags        map[string]string
}

// Tag returns the value attached under key, or "" if absent.
func (e *Event) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}

// Store is the interface for a mutable calendar backend. Both the Google
// Calendar and CalDAV clients implement this interface. Implementations
// are bound to a single calendar at construction time.
//
// Mutation methods update the passed *Event in place on success so that
// callers always hold the current state of the event.
type Store interface {
	// Events lists events with start times in [min, maxExclusive).
	Events(min, maxExclusive time.Time) ([]*Event, error)

	CreateTimedEvent(title string, start, end time.Time) (*Event, error)
	CreateAllDayEvent(title string, date time.Time) (*Event, error)
	// CreateAllDayRangeEvent creates a multi-day all-day event spanning
	// [startDate, endDate] inclusive.
	CreateAllDayRangeEvent(title string, startDate, endDate time.Time) (*Event, error)

	SetTag(event *Event, key, value string) error
	SetTitle(event *Event, title string) error
	SetDescription(event *Event, description string) error
	SetTime(event *Event, start, end time.Time) error
	SetAllDayDate(event *Event, date time.Time) error
	// SetAllDayDates converts the event to a multi-day all-day event
	// spanning [startDate, endDate] inclusive.
	SetAllDayDates(event *Event, startDate, endDate time.Time) error

	DeleteEvent(event *Event) error
}

// StoreError wraps a provider-side failure from any Store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("calendar store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func storeErrf(op, format string, args ...any) error {
	return &StoreError{Op: op, Err: fmt.Errorf(format, args...)}
}
