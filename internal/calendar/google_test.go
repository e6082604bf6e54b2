package calendar

import (
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

func TestEventFromAPI_Timed(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	g := &GoogleStore{loc: jst}

	ev, err := g.eventFromAPI(&gcal.Event{
		Id:          "ev1",
		Summary:     "Planning",
		Description: "bring slides",
		Start:       &gcal.EventDateTime{DateTime: "2024-05-02T10:00:00+09:00"},
		End:         &gcal.EventDateTime{DateTime: "2024-05-02T11:00:00+09:00"},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{"calendar-sync-id": "x2"},
		},
	})
	if err != nil {
		t.Fatalf("eventFromAPI() returned an error: %v", err)
	}

	if ev.ID != "ev1" || ev.Title != "Planning" || ev.Description != "bring slides" {
		t.Errorf("unexpected event fields: %+v", ev)
	}
	if ev.AllDay {
		t.Error("expected a timed event")
	}
	if !ev.Start.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, jst)) {
		t.Errorf("start = %v, want 2024-05-02T10:00:00+09:00", ev.Start)
	}
	if got := ev.Tag("calendar-sync-id"); got != "x2" {
		t.Errorf("Tag() = %q, want %q", got, "x2")
	}
}

func TestEventFromAPI_AllDay(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	g := &GoogleStore{loc: jst}

	ev, err := g.eventFromAPI(&gcal.Event{
		Id:      "ev2",
		Summary: "Offsite",
		Start:   &gcal.EventDateTime{Date: "2024-05-01"},
		End:     &gcal.EventDateTime{Date: "2024-05-04"},
	})
	if err != nil {
		t.Fatalf("eventFromAPI() returned an error: %v", err)
	}

	if !ev.AllDay {
		t.Fatal("expected an all-day event")
	}
	// Dates are anchored at midnight in the store's zone; the end stays
	// exclusive as the API reports it.
	if !ev.AllDayStart.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, jst)) {
		t.Errorf("AllDayStart = %v, want midnight 2024-05-01 in JST", ev.AllDayStart)
	}
	if !ev.AllDayEnd.Equal(time.Date(2024, 5, 4, 0, 0, 0, 0, jst)) {
		t.Errorf("AllDayEnd = %v, want midnight 2024-05-04 in JST", ev.AllDayEnd)
	}
	if ev.Tag("calendar-sync-id") != "" {
		t.Errorf("expected no tag on untagged event, got %q", ev.Tag("calendar-sync-id"))
	}
}

func TestEventFromAPI_Invalid(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	g := &GoogleStore{loc: jst}

	tests := []struct {
		name string
		item *gcal.Event
	}{
		{
			name: "missing start and end",
			item: &gcal.Event{Id: "ev3", Summary: "Broken"},
		},
		{
			name: "malformed all-day date",
			item: &gcal.Event{
				Id:    "ev4",
				Start: &gcal.EventDateTime{Date: "May 1st"},
				End:   &gcal.EventDateTime{Date: "2024-05-02"},
			},
		},
		{
			name: "malformed datetime",
			item: &gcal.Event{
				Id:    "ev5",
				Start: &gcal.EventDateTime{DateTime: "sometime"},
				End:   &gcal.EventDateTime{DateTime: "2024-05-02T11:00:00+09:00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.eventFromAPI(tt.item); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestMidnight(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	in := time.Date(2024, 5, 2, 17, 45, 30, 123, jst)

	got := midnight(in)
	want := time.Date(2024, 5, 2, 0, 0, 0, 0, jst)
	if !got.Equal(want) {
		t.Errorf("midnight(%v) = %v, want %v", in, got, want)
	}
	if got.Location() != jst {
		t.Errorf("midnight() changed the location to %v", got.Location())
	}
}
