package api

import (
	"net/http"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
)

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	DisplayName string        `json:"displayName"`
	Roles       []domain.Role `json:"roles"`
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
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

type updateUserRequest struct {
	DisplayName *string       `json:"displayName"`
	Password    *string       `json:"password"`
	Roles       []domain.Role `json:"roles"`
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req updateUserRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.writeError(w, err)
			return
		}
		user.PasswordHash = hash
	}
	if req.Roles != nil {
		// Demoting the last admin is the same hazard as deleting them.
		if user.IsAdmin() && !hasRole(req.Roles, domain.RoleAdmin) {
			admins, err := h.store.CountAdmins(r.Context())
			if err != nil {
				h.writeError(w, err)
				return
			}
			if admins <= 1 {
				h.writeError(w, domain.Invalidf("cannot remove the last admin role"))
				return
			}
		}
		user.Roles = req.Roles
	}
	if err := user.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(user)})
}

// DeleteUser removes a user and cascades: every permission entry for the
// user is stripped and any calendar they owned loses its owner. The sole
// remaining admin cannot be deleted.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if user.IsAdmin() {
		admins, err := h.store.CountAdmins(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
		if admins <= 1 {
			h.writeError(w, domain.Invalidf("cannot delete the last admin user"))
			return
		}
	}
	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func hasRole(roles []domain.Role, want domain.Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
