package api

import (
	"net/http"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
)

func (h *Handlers) ListViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.store.ListViews(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]viewDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toViewDTO(v))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"views": out})
}

type viewRequest struct {
	Name        string   `json:"name"`
	Alias       string   `json:"alias"`
	CalendarIDs []string `json:"calendarIds"`
	ColumnCount int      `json:"columnCount"`
	PaddingPx   int      `json:"paddingPx"`
}

func (h *Handlers) CreateView(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var req viewRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ColumnCount == 0 {
		req.ColumnCount = 2
	}
	v := &domain.View{
		Name:        req.Name,
		Alias:       req.Alias,
		CalendarIDs: req.CalendarIDs,
		ColumnCount: req.ColumnCount,
		PaddingPx:   req.PaddingPx,
		CreatedBy:   p.ID,
	}
	if err := v.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.checkViewCalendars(r, v.CalendarIDs); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.CreateView(r.Context(), v); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"view": toViewDTO(v)})
}

func (h *Handlers) GetView(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.GetViewByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"view": toViewDTO(v)})
}

func (h *Handlers) UpdateView(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.GetViewByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req viewRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Name != "" {
		v.Name = req.Name
	}
	if req.Alias != "" {
		v.Alias = req.Alias
	}
	if req.CalendarIDs != nil {
		v.CalendarIDs = req.CalendarIDs
	}
	if req.ColumnCount != 0 {
		v.ColumnCount = req.ColumnCount
	}
	if req.PaddingPx != 0 {
		v.PaddingPx = req.PaddingPx
	}
	if err := v.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.checkViewCalendars(r, v.CalendarIDs); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.UpdateView(r.Context(), v); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"view": toViewDTO(v)})
}

func (h *Handlers) DeleteView(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteView(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "view deleted"})
}

// ViewByAlias is the public dashboard read: no authentication, resolved
// purely by alias. Calendar summaries ride along for rendering.
func (h *Handlers) ViewByAlias(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.GetViewByAlias(r.Context(), r.PathValue("alias"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	cals, err := h.store.ListCalendars(r.Context(), v.CalendarIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summaries := make([]calendarSummaryDTO, 0, len(cals))
	for _, c := range cals {
		summaries = append(summaries, calendarSummaryDTO{ID: c.ID, Name: c.Name, Category: c.Category})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"view":      toViewDTO(v),
		"calendars": summaries,
	})
}

// Views may only group calendars that actually exist.
func (h *Handlers) checkViewCalendars(r *http.Request, ids []string) error {
	cals, err := h.store.ListCalendars(r.Context(), ids)
	if err != nil {
		return err
	}
	found := make(map[string]struct{}, len(cals))
	for _, c := range cals {
		found[c.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return domain.Invalidf("unknown calendar %s", id)
		}
	}
	return nil
}
