package domain

import "time"

// Level is a per-calendar access level, ordered view < edit.
type Level string

const (
	LevelView Level = "view"
	LevelEdit Level = "edit"
)

func (l Level) Valid() bool {
	return l == LevelView || l == LevelEdit
}

// Satisfies reports whether a grant of l covers a request for req.
// An edit grant covers everything; a view grant covers view only.
func (l Level) Satisfies(req Level) bool {
	return l == LevelEdit || req == LevelView
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// Permission is one entry of a calendar's permission list. Entries are
// unique per user; re-granting overwrites the level in place.
type Permission struct {
	UserID string
	Level  Level
}

type Calendar struct {
	ID       string
	Name     string
	Category string
	// OwnerID is empty when the calendar has no owner (for example after
	// the owning user was deleted).
	OwnerID     string
	Color       string
	IsPublic    bool
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PermissionFor returns the explicit grant for userID, if any.
func (c *Calendar) PermissionFor(userID string) (Permission, bool) {
	for _, p := range c.Permissions {
		if p.UserID == userID {
			return p, true
		}
	}
	return Permission{}, false
}

type Event struct {
	ID          string
	CalendarID  string
	Subject     string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View is an admin-curated, alias-addressable grouping of calendars for
// public dashboard display.
type View struct {
	ID          string
	Name        string
	Alias       string
	CalendarIDs []string
	ColumnCount int
	PaddingPx   int
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
