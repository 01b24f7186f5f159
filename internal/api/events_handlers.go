package api

import (
	"net/http"
	"strings"
	"time"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
	"teamcal/internal/events"
)

type createEventRequest struct {
	CalendarID  string    `json:"calendarId"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	AllDay      bool      `json:"allDay"`
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var req createEventRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resolver.AuthorizeCalendar(r.Context(), req.CalendarID, p, domain.LevelEdit); err != nil {
		h.writeError(w, err)
		return
	}
	ev := &domain.Event{
		CalendarID:  req.CalendarID,
		Subject:     req.Subject,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		AllDay:      req.AllDay,
		CreatedBy:   p.ID,
	}
	if err := ev.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.CreateEvent(r.Context(), ev); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"event": toEventDTO(ev)})
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	ev, err := h.store.GetEventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resolver.AuthorizeCalendar(r.Context(), ev.CalendarID, p, domain.LevelView); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"event": toEventDTO(ev)})
}

type updateEventRequest struct {
	Subject     *string    `json:"subject"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	AllDay      *bool      `json:"allDay"`
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	ev, err := h.store.GetEventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resolver.AuthorizeCalendar(r.Context(), ev.CalendarID, p, domain.LevelEdit); err != nil {
		h.writeError(w, err)
		return
	}
	var req updateEventRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Subject != nil {
		ev.Subject = *req.Subject
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.StartTime != nil {
		ev.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		ev.EndTime = *req.EndTime
	}
	if req.AllDay != nil {
		ev.AllDay = *req.AllDay
	}
	if err := ev.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.UpdateEvent(r.Context(), ev); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"event": toEventDTO(ev)})
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	ev, err := h.store.GetEventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resolver.AuthorizeCalendar(r.Context(), ev.CalendarID, p, domain.LevelEdit); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.DeleteEvent(r.Context(), ev.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (h *Handlers) EventsByCalendar(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	start, end, err := parseWindow(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	evs, err := h.events.ForCalendar(r.Context(), p, r.PathValue("calendarId"), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]eventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, toEventDTO(e))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": out, "total": len(out)})
}

func (h *Handlers) AggregatedEvents(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	start, end, err := parseWindow(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	f := events.Filter{
		Start:    start,
		End:      end,
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("calendarIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.CalendarIDs = append(f.CalendarIDs, id)
			}
		}
	}
	agg, err := h.events.Aggregate(r.Context(), p, f)
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

func parseWindow(r *http.Request) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, domain.Invalidf("bad start time %q", raw)
		}
		start = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, domain.Invalidf("bad end time %q", raw)
		}
		end = &t
	}
	return start, end, nil
}
