package events

import (
	"context"
	"sort"
	"testing"
	"time"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

type fakeStore struct {
	calendars []*domain.Calendar
	events    []*domain.Event
	lastQuery storage.EventQuery
}

func (f *fakeStore) ListCalendars(ctx context.Context, ids []string) ([]*domain.Calendar, error) {
	if ids == nil {
		return f.calendars, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []*domain.Calendar
	for _, c := range f.calendars {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEvents(ctx context.Context, q storage.EventQuery) ([]*domain.Event, error) {
	f.lastQuery = q
	scope := make(map[string]struct{}, len(q.CalendarIDs))
	for _, id := range q.CalendarIDs {
		scope[id] = struct{}{}
	}
	var out []*domain.Event
	for _, e := range f.events {
		if _, ok := scope[e.CalendarID]; !ok {
			continue
		}
		if q.Start != nil && q.End != nil {
			// window overlap: anything touching [start, end]
			if e.EndTime.Before(*q.Start) || e.StartTime.After(*q.End) {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

type fakeAuthz struct {
	accessible []string
}

func (f *fakeAuthz) AuthorizeCalendar(ctx context.Context, calendarID string, p *auth.Principal, level domain.Level) error {
	for _, id := range f.accessible {
		if id == calendarID {
			return nil
		}
	}
	return domain.ErrForbidden
}

func (f *fakeAuthz) AccessibleCalendarIDs(ctx context.Context, p *auth.Principal) ([]string, error) {
	return f.accessible, nil
}

func seed() (*fakeStore, time.Time) {
	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	st := &fakeStore{
		calendars: []*domain.Calendar{
			{ID: "team", Name: "Team", Category: "work"},
			{ID: "rooms", Name: "Rooms", Category: "facilities"},
			{ID: "secret", Name: "Secret", Category: "work"},
		},
		events: []*domain.Event{
			{ID: "e1", CalendarID: "team", Subject: "standup", StartTime: base, EndTime: base.Add(time.Hour)},
			{ID: "e2", CalendarID: "rooms", Subject: "maintenance", StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour)},
			{ID: "e3", CalendarID: "secret", Subject: "board meeting", StartTime: base, EndTime: base.Add(time.Hour)},
			// spans the whole query window
			{ID: "e4", CalendarID: "team", Subject: "offsite", StartTime: base.AddDate(0, 0, -2), EndTime: base.AddDate(0, 0, 2)},
		},
	}
	return st, base
}

func TestAggregateScopedToAccessible(t *testing.T) {
	st, _ := seed()
	svc := NewService(st, &fakeAuthz{accessible: []string{"team", "rooms"}})

	out, err := svc.Aggregate(context.Background(), nil, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range out {
		if a.Event.CalendarID == "secret" {
			t.Fatal("event from inaccessible calendar leaked")
		}
	}
	if len(out) != 3 {
		t.Fatalf("want 3 events, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Event.StartTime.Before(out[i-1].Event.StartTime) {
			t.Fatal("results not ordered by start time")
		}
	}
	if out[0].Calendar.Name == "" {
		t.Fatal("calendar summary not attached")
	}
}

// Requesting extra calendar ids must narrow, never widen, the result set.
func TestAggregateIntersectsRequestedIDs(t *testing.T) {
	st, _ := seed()
	svc := NewService(st, &fakeAuthz{accessible: []string{"team", "rooms"}})

	out, err := svc.Aggregate(context.Background(), nil, Filter{CalendarIDs: []string{"team", "secret"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range out {
		if a.Event.CalendarID != "team" {
			t.Fatalf("unexpected calendar %s in results", a.Event.CalendarID)
		}
	}
	if len(out) != 2 {
		t.Fatalf("want 2 team events, got %d", len(out))
	}

	out, err = svc.Aggregate(context.Background(), nil, Filter{CalendarIDs: []string{"secret"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatal("inaccessible-only selection should yield nothing")
	}
}

func TestAggregateCategoryFilter(t *testing.T) {
	st, _ := seed()
	svc := NewService(st, &fakeAuthz{accessible: []string{"team", "rooms"}})

	out, err := svc.Aggregate(context.Background(), nil, Filter{Category: "facilities"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Event.ID != "e2" {
		t.Fatalf("want only the rooms event, got %v", out)
	}

	out, err = svc.Aggregate(context.Background(), nil, Filter{Category: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatal("unknown category should match nothing")
	}
}

// An event that starts before the window and ends after it overlaps the
// window and must be returned.
func TestAggregateWindowSpanning(t *testing.T) {
	st, base := seed()
	svc := NewService(st, &fakeAuthz{accessible: []string{"team"}})

	start := base.Add(-time.Hour)
	end := base.Add(30 * time.Minute)
	out, err := svc.Aggregate(context.Background(), nil, Filter{Start: &start, End: &end})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, a := range out {
		if a.Event.ID == "e4" {
			found = true
		}
	}
	if !found {
		t.Fatal("window-spanning event missing from results")
	}
}

func TestAggregateEmptyAccessible(t *testing.T) {
	st, _ := seed()
	svc := NewService(st, &fakeAuthz{})

	out, err := svc.Aggregate(context.Background(), nil, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatal("no accessible calendars should mean no events")
	}
	if len(st.lastQuery.CalendarIDs) != 0 {
		t.Fatal("store should not be queried without an id scope")
	}
}

func TestForCalendarAuthorizes(t *testing.T) {
	st, _ := seed()
	svc := NewService(st, &fakeAuthz{accessible: []string{"team"}})

	evs, err := svc.ForCalendar(context.Background(), nil, "team", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("want 2 events, got %d", len(evs))
	}

	if _, err := svc.ForCalendar(context.Background(), nil, "secret", nil, nil); err == nil {
		t.Fatal("expected authorization failure")
	}
}
