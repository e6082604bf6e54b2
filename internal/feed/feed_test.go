package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

const sampleFeed = `{
  "start": "2024-05-01T00:00:00+09:00",
  "end": "2024-05-31T00:00:00+09:00",
  "events": [
    {
      "id": "x1",
      "title": "Standup",
      "description": "",
      "noTime": true,
      "start": "2024-05-01",
      "end": "2024-05-01"
    },
    {
      "id": "x2",
      "title": "Planning",
      "description": "bring slides",
      "noTime": false,
      "start": "2024-05-02T10:00:00+09:00",
      "end": "2024-05-02T11:00:00+09:00"
    }
  ]
}`

func TestFetch(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name      string
		transport *mockTransport
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: sampleFeed, statusCode: 200},
			wantItems: 2,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid json",
			transport: &mockTransport{body: "not json at all", statusCode: 200},
			wantErr:   true,
		},
		{
			name:      "missing range",
			transport: &mockTransport{body: `{"events": []}`, statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.transport, "https://example.com/events.json", jst)
			got, err := f.Fetch(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var fetchErr *FetchError
				if !errors.As(err, &fetchErr) {
					t.Errorf("expected a *FetchError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantItems, len(got.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetch_ParsesFields(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	f := NewFetcher(&mockTransport{body: sampleFeed, statusCode: 200}, "https://example.com/events.json", jst)

	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !got.Start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, jst)) {
		t.Errorf("feed start = %v, want 2024-05-01 in JST", got.Start)
	}

	allDay := got.Items[0]
	if allDay.ID != "x1" || !allDay.AllDay {
		t.Errorf("expected item x1 to be all-day, got %+v", allDay)
	}
	// A bare date is anchored at midnight in the configured zone.
	if !allDay.Start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, jst)) {
		t.Errorf("all-day start = %v, want midnight 2024-05-01 in JST", allDay.Start)
	}

	timed := got.Items[1]
	if timed.AllDay {
		t.Error("expected item x2 to be timed")
	}
	if timed.Description != "bring slides" {
		t.Errorf("description = %q, want %q", timed.Description, "bring slides")
	}
	if !timed.Start.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, jst)) {
		t.Errorf("timed start = %v, want 2024-05-02T10:00:00+09:00", timed.Start)
	}
}

func TestFetch_StrictSchema(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)

	wrap := func(event string) string {
		return `{"start": "2024-05-01", "end": "2024-05-31", "events": [` + event + `]}`
	}

	tests := []struct {
		name    string
		event   string
		wantErr bool
	}{
		{
			name:    "missing title rejected",
			event:   `{"id": "x1", "description": "", "noTime": false, "start": "2024-05-01", "end": "2024-05-01"}`,
			wantErr: true,
		},
		{
			name:    "missing description rejected",
			event:   `{"id": "x1", "title": "A", "noTime": false, "start": "2024-05-01", "end": "2024-05-01"}`,
			wantErr: true,
		},
		{
			name:    "missing noTime rejected",
			event:   `{"id": "x1", "title": "A", "description": "", "start": "2024-05-01", "end": "2024-05-01"}`,
			wantErr: true,
		},
		{
			name:    "missing times rejected",
			event:   `{"id": "x1", "title": "A", "description": "", "noTime": false}`,
			wantErr: true,
		},
		{
			name:    "malformed timestamp rejected",
			event:   `{"id": "x1", "title": "A", "description": "", "noTime": false, "start": "yesterday", "end": "2024-05-01"}`,
			wantErr: true,
		},
		{
			name:  "missing id accepted, excluded later by the mapper",
			event: `{"title": "A", "description": "", "noTime": false, "start": "2024-05-01", "end": "2024-05-01"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(&mockTransport{body: wrap(tt.event), statusCode: 200}, "https://example.com/events.json", jst)
			got, err := f.Fetch(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.Items) != 1 || got.Items[0].ID != "" {
				t.Errorf("expected one item with empty id, got %+v", got.Items)
			}
		})
	}
}
