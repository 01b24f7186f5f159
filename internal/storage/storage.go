package storage

import (
	"context"
	"strings"
	"time"

	"teamcal/internal/domain"
)

// EventQuery scopes an event listing. CalendarIDs is the mandatory
// authorization boundary: callers pass the accessible-calendar set and the
// store never returns events outside it. Start/End select by window overlap,
// Search is a case-insensitive substring match over subject and description.
type EventQuery struct {
	CalendarIDs []string
	Start       *time.Time
	End         *time.Time
	Search      string
}

type Store interface {
	Close()

	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	// DeleteUser cascades: strips the user from every calendar's permission
	// list and clears ownership on calendars they owned.
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)

	// Calendars
	CreateCalendar(ctx context.Context, c *domain.Calendar) error
	GetCalendarByID(ctx context.Context, id string) (*domain.Calendar, error)
	// ListCalendars returns the calendars in ids, permissions included.
	// A nil ids slice means all calendars; an empty slice means none.
	ListCalendars(ctx context.Context, ids []string) ([]*domain.Calendar, error)
	UpdateCalendar(ctx context.Context, c *domain.Calendar) error
	// DeleteCalendar removes the calendar, its permission entries and its
	// events.
	DeleteCalendar(ctx context.Context, id string) error

	// Permission list. Upsert overwrites the level in place when an entry
	// already exists, so repeated identical grants are idempotent and the
	// list never holds duplicates for one user.
	UpsertPermission(ctx context.Context, calendarID, userID string, level domain.Level) error
	DeletePermission(ctx context.Context, calendarID, userID string) error

	// Set-valued authorization queries backing the permission resolver.
	AccessibleCalendarIDs(ctx context.Context, userID string) ([]string, error)
	PublicCalendarIDs(ctx context.Context) ([]string, error)
	AllCalendarIDs(ctx context.Context) ([]string, error)

	// Events
	CreateEvent(ctx context.Context, e *domain.Event) error
	GetEventByID(ctx context.Context, id string) (*domain.Event, error)
	UpdateEvent(ctx context.Context, e *domain.Event) error
	DeleteEvent(ctx context.Context, id string) error
	// ListEvents returns matching events ordered by start time ascending.
	ListEvents(ctx context.Context, q EventQuery) ([]*domain.Event, error)

	// Views
	CreateView(ctx context.Context, v *domain.View) error
	GetViewByID(ctx context.Context, id string) (*domain.View, error)
	GetViewByAlias(ctx context.Context, alias string) (*domain.View, error)
	ListViews(ctx context.Context) ([]*domain.View, error)
	UpdateView(ctx context.Context, v *domain.View) error
	DeleteView(ctx context.Context, id string) error
}

// EncodeRoles and DecodeRoles keep the role set in a single text column so
// both SQL dialects share one schema shape.
func EncodeRoles(roles []domain.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

func DecodeRoles(s string) []domain.Role {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]domain.Role, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, domain.Role(p))
	}
	return roles
}
