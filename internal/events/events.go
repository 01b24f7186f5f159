// Package events composes aggregated event queries. The accessible-calendar
// set from the access resolver is always ANDed into the final query; no
// filter input can widen it.
package events

import (
	"context"
	"time"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

// Filter carries the optional narrowing filters of an aggregated listing.
// CalendarIDs is an explicit sub-selection that is intersected with the
// accessible set, never unioned.
type Filter struct {
	Start       *time.Time
	End         *time.Time
	Category    string
	Search      string
	CalendarIDs []string
}

type CalendarSummary struct {
	ID       string
	Name     string
	Category string
}

type Aggregated struct {
	Event    *domain.Event
	Calendar CalendarSummary
}

type Store interface {
	ListCalendars(ctx context.Context, ids []string) ([]*domain.Calendar, error)
	ListEvents(ctx context.Context, q storage.EventQuery) ([]*domain.Event, error)
}

type Authorizer interface {
	AuthorizeCalendar(ctx context.Context, calendarID string, p *auth.Principal, level domain.Level) error
	AccessibleCalendarIDs(ctx context.Context, p *auth.Principal) ([]string, error)
}

type Service struct {
	store Store
	authz Authorizer
}

func NewService(store Store, authz Authorizer) *Service {
	return &Service{store: store, authz: authz}
}

// Aggregate lists events across every calendar the principal may view,
// narrowed by the filter, ordered by start time ascending.
func (s *Service) Aggregate(ctx context.Context, p *auth.Principal, f Filter) ([]Aggregated, error) {
	ids, err := s.authz.AccessibleCalendarIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(f.CalendarIDs) > 0 {
		ids = intersect(ids, f.CalendarIDs)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cals, err := s.store.ListCalendars(ctx, ids)
	if err != nil {
		return nil, err
	}
	summaries := make(map[string]CalendarSummary, len(cals))
	scope := make([]string, 0, len(cals))
	for _, c := range cals {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		summaries[c.ID] = CalendarSummary{ID: c.ID, Name: c.Name, Category: c.Category}
		scope = append(scope, c.ID)
	}
	if len(scope) == 0 {
		return nil, nil
	}

	evs, err := s.store.ListEvents(ctx, storage.EventQuery{
		CalendarIDs: scope,
		Start:       f.Start,
		End:         f.End,
		Search:      f.Search,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Aggregated, 0, len(evs))
	for _, e := range evs {
		out = append(out, Aggregated{Event: e, Calendar: summaries[e.CalendarID]})
	}
	return out, nil
}

// ForCalendar lists one calendar's events within an optional window, after
// authorizing view access for the principal.
func (s *Service) ForCalendar(ctx context.Context, p *auth.Principal, calendarID string, start, end *time.Time) ([]*domain.Event, error) {
	if err := s.authz.AuthorizeCalendar(ctx, calendarID, p, domain.LevelView); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, storage.EventQuery{
		CalendarIDs: []string{calendarID},
		Start:       start,
		End:         end,
	})
}

func intersect(accessible, requested []string) []string {
	want := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}
	var out []string
	for _, id := range accessible {
		if _, ok := want[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
