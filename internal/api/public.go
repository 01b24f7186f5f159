package api

import (
	"net/http"

	"teamcal/internal/events"
)

// The public surface goes through the same resolver as authenticated
// paths, with a nil principal; there is no separate public rule set.

func (h *Handlers) PublicCalendars(w http.ResponseWriter, r *http.Request) {
	ids, err := h.resolver.AccessibleCalendarIDs(r.Context(), nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	cals, err := h.store.ListCalendars(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]calendarSummaryDTO, 0, len(cals))
	for _, c := range cals {
		out = append(out, calendarSummaryDTO{ID: c.ID, Name: c.Name, Category: c.Category})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendars": out})
}

func (h *Handlers) PublicEvents(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	agg, err := h.events.Aggregate(r.Context(), nil, events.Filter{Start: start, End: end})
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]aggregatedEventDTO, 0, len(agg))
	for _, a := range agg {
		out = append(out, toAggregatedDTO(a))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": out, "total": len(out)})
}
