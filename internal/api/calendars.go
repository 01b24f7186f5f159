package api

import (
	"net/http"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
)

func (h *Handlers) ListCalendars(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	ids, err := h.resolver.AccessibleCalendarIDs(r.Context(), p)
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
	out := make([]calendarDTO, 0, len(cals))
	for _, c := range cals {
		out = append(out, toCalendarDTO(c))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendars": out})
}

type createCalendarRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	OwnerID  string `json:"ownerId"`
	Color    string `json:"color"`
	IsPublic bool   `json:"isPublic"`
}

func (h *Handlers) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var req createCalendarRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	owner := req.OwnerID
	if owner == "" {
		owner = p.ID
	} else if _, err := h.store.GetUserByID(r.Context(), owner); err != nil {
		h.writeError(w, err)
		return
	}
	cal := &domain.Calendar{
		Name:     req.Name,
		Category: req.Category,
		OwnerID:  owner,
		Color:    req.Color,
		IsPublic: req.IsPublic,
	}
	if err := cal.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.CreateCalendar(r.Context(), cal); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"calendar": toCalendarDTO(cal)})
}

func (h *Handlers) GetCalendar(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	id := r.PathValue("id")
	if err := h.resolver.AuthorizeCalendar(r.Context(), id, p, domain.LevelView); err != nil {
		h.writeError(w, err)
		return
	}
	cal, err := h.store.GetCalendarByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendar": toCalendarDTO(cal)})
}

type updateCalendarRequest struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Color    *string `json:"color"`
	IsPublic *bool   `json:"isPublic"`
}

// UpdateCalendar changes calendar metadata. Owner or admin only; an edit
// grant on the calendar covers its events, not the calendar itself.
func (h *Handlers) UpdateCalendar(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	cal, err := h.store.GetCalendarByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !p.IsAdmin() && cal.OwnerID != p.ID {
		h.writeError(w, domain.ErrForbidden)
		return
	}
	var req updateCalendarRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Name != nil {
		cal.Name = *req.Name
	}
	if req.Category != nil {
		cal.Category = *req.Category
	}
	if req.Color != nil {
		cal.Color = *req.Color
	}
	if req.IsPublic != nil {
		cal.IsPublic = *req.IsPublic
	}
	if err := cal.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.UpdateCalendar(r.Context(), cal); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendar": toCalendarDTO(cal)})
}

func (h *Handlers) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCalendar(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "calendar deleted"})
}

type grantRequest struct {
	UserID      string       `json:"userId"`
	AccessLevel domain.Level `json:"accessLevel"`
}

func (h *Handlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := h.resolver.Grant(r.Context(), id, req.UserID, req.AccessLevel); err != nil {
		h.writeError(w, err)
		return
	}
	cal, err := h.store.GetCalendarByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendar": toCalendarDTO(cal)})
}

func (h *Handlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.resolver.Revoke(r.Context(), id, r.PathValue("userId")); err != nil {
		h.writeError(w, err)
		return
	}
	cal, err := h.store.GetCalendarByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"calendar": toCalendarDTO(cal)})
}
