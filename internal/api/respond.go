package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"teamcal/internal/domain"
)

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.logger.Error().Err(err).Msg("encode response")
		}
	}
}

// writeError maps the failure taxonomy onto status codes:
// NotFound 404, Unauthorized 401, Forbidden 403, ValidationFailed 400.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer realm="teamcal"`)
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	default:
		h.logger.Error().Err(err).Msg("internal error")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.HTTP.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalidf("malformed request body")
	}
	return nil
}
