package api

import (
	"net/http"
	"strings"

	"github.com/emersion/go-ical"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

// CalendarFeed exports a calendar as an iCalendar document. Gated by the
// same resolver as every other read: anonymous callers get public
// calendars only.
func (h *Handlers) CalendarFeed(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	id := strings.TrimSuffix(r.PathValue("id"), ".ics")
	if err := h.resolver.AuthorizeCalendar(r.Context(), id, p, domain.LevelView); err != nil {
		h.writeError(w, err)
		return
	}
	calendar, err := h.store.GetCalendarByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	evs, err := h.store.ListEvents(r.Context(), storage.EventQuery{CalendarIDs: []string{id}})
	if err != nil {
		h.writeError(w, err)
		return
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, h.cfg.Feed.BuildProdID())
	cal.Props.SetText("X-WR-CALNAME", calendar.Name)
	for _, e := range evs {
		ve := ical.NewComponent(ical.CompEvent)
		ve.Props.SetText(ical.PropUID, e.ID)
		ve.Props.SetText(ical.PropSummary, e.Subject)
		if e.Description != "" {
			ve.Props.SetText(ical.PropDescription, e.Description)
		}
		ve.Props.SetDateTime(ical.PropDateTimeStamp, e.UpdatedAt.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
		cal.Children = append(cal.Children, ve)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		h.logger.Error().Err(err).Str("calendar", id).Msg("encode feed")
	}
}
