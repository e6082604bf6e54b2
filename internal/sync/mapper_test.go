package sync

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedcal/internal/calendar"
	"feedcal/internal/feed"
)

func TestMapItemsByID(t *testing.T) {
	tests := []struct {
		name  string
		items []feed.Item
		want  map[string]string // id -> title
	}{
		{
			name:  "empty input",
			items: nil,
			want:  map[string]string{},
		},
		{
			name: "distinct ids",
			items: []feed.Item{
				{ID: "a", Title: "A"},
				{ID: "b", Title: "B"},
			},
			want: map[string]string{"a": "A", "b": "B"},
		},
		{
			name: "first occurrence wins",
			items: []feed.Item{
				{ID: "a", Title: "first"},
				{ID: "a", Title: "second"},
				{ID: "a", Title: "third"},
			},
			want: map[string]string{"a": "first"},
		},
		{
			name: "empty ids are skipped",
			items: []feed.Item{
				{ID: "", Title: "no id"},
				{ID: "a", Title: "A"},
				{ID: "", Title: "also no id"},
			},
			want: map[string]string{"a": "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapItemsByID(tt.items)
			got := make(map[string]string, len(mapped))
			for id, item := range mapped {
				got[id] = item.Title
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mapping mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapEventsByTag(t *testing.T) {
	const tagKey = "calendar-sync-id"

	tagged := func(id, title, tag string) *calendar.Event {
		return &calendar.Event{ID: id, Title: title, Tags: map[string]string{tagKey: tag}}
	}

	tests := []struct {
		name     string
		events   []*calendar.Event
		want     map[string]string // tag -> event ID
		wantDups []string          // event IDs
	}{
		{
			name:   "empty input",
			events: nil,
			want:   map[string]string{},
		},
		{
			name: "untagged events are ignored",
			events: []*calendar.Event{
				{ID: "e1", Title: "manual event"},
				tagged("e2", "synced", "a"),
			},
			want: map[string]string{"a": "e2"},
		},
		{
			name: "empty tag value treated as missing",
			events: []*calendar.Event{
				tagged("e1", "blank", ""),
				tagged("e2", "synced", "a"),
			},
			want: map[string]string{"a": "e2"},
		},
		{
			name: "first wins, later duplicates segregated",
			events: []*calendar.Event{
				tagged("e1", "canonical", "a"),
				tagged("e2", "dup", "a"),
				tagged("e3", "dup", "a"),
				tagged("e4", "other", "b"),
			},
			want:     map[string]string{"a": "e1", "b": "e4"},
			wantDups: []string{"e2", "e3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped, dups := mapEventsByTag(tt.events, tagKey)

			got := make(map[string]string, len(mapped))
			for tag, event := range mapped {
				got[tag] = event.ID
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mapping mismatch (-want +got):\n%s", diff)
			}

			var gotDups []string
			for _, event := range dups {
				gotDups = append(gotDups, event.ID)
			}
			if diff := cmp.Diff(tt.wantDups, gotDups); diff != "" {
				t.Errorf("dups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapEventsByTag_AlternateKey(t *testing.T) {
	events := []*calendar.Event{
		{ID: "e1", Tags: map[string]string{"other-key": "a"}},
	}

	mapped, dups := mapEventsByTag(events, "calendar-sync-id")
	if len(mapped) != 0 || len(dups) != 0 {
		t.Errorf("expected event tagged under a different key to be ignored, got %d mapped, %d dups", len(mapped), len(dups))
	}

	mapped, _ = mapEventsByTag(events, "other-key")
	if len(mapped) != 1 {
		t.Errorf("expected event to map under its own key, got %d mapped", len(mapped))
	}
}
