package api

import (
	"net/http"
	"strings"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same answer whether the username or the password was wrong.
		h.writeError(w, domain.ErrUnauthorized)
		return
	}
	token, err := h.bearer.Issue(user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserDTO(user),
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		h.bearer.Invalidate(strings.TrimSpace(authz[7:]))
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"user": toPrincipalDTO(p)})
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Register creates a user account. The very first account becomes the
// admin; everyone after that registers as a regular user, and further
// admins are provisioned through the admin user endpoints.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	n, err := h.store.CountUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	roles := []domain.Role{domain.RoleUser}
	if n == 0 {
		roles = []domain.Role{domain.RoleAdmin}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user := &domain.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := user.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"user": toUserDTO(user)})
}
