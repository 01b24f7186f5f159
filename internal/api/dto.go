package api

import (
	"time"

	"teamcal/internal/auth"
	"teamcal/internal/domain"
	"teamcal/internal/events"
)

type userDTO struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	DisplayName string        `json:"displayName,omitempty"`
	Roles       []domain.Role `json:"roles"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type principalDTO struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	DisplayName string        `json:"displayName,omitempty"`
	Roles       []domain.Role `json:"roles"`
}

func toPrincipalDTO(p *auth.Principal) principalDTO {
	return principalDTO{ID: p.ID, Username: p.Username, DisplayName: p.DisplayName, Roles: p.Roles}
}

type permissionDTO struct {
	UserID      string       `json:"userId"`
	AccessLevel domain.Level `json:"accessLevel"`
}

type calendarDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	OwnerID     string          `json:"ownerId,omitempty"`
	Color       string          `json:"color"`
	IsPublic    bool            `json:"isPublic"`
	Permissions []permissionDTO `json:"permissions"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toCalendarDTO(c *domain.Calendar) calendarDTO {
	perms := make([]permissionDTO, 0, len(c.Permissions))
	for _, p := range c.Permissions {
		perms = append(perms, permissionDTO{UserID: p.UserID, AccessLevel: p.Level})
	}
	return calendarDTO{
		ID:          c.ID,
		Name:        c.Name,
		Category:    c.Category,
		OwnerID:     c.OwnerID,
		Color:       c.Color,
		IsPublic:    c.IsPublic,
		Permissions: perms,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type calendarSummaryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type eventDTO struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	AllDay      bool      `json:"allDay"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEventDTO(e *domain.Event) eventDTO {
	return eventDTO{
		ID:          e.ID,
		CalendarID:  e.CalendarID,
		Subject:     e.Subject,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		AllDay:      e.AllDay,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type aggregatedEventDTO struct {
	eventDTO
	Calendar calendarSummaryDTO `json:"calendar"`
}

func toAggregatedDTO(a events.Aggregated) aggregatedEventDTO {
	return aggregatedEventDTO{
		eventDTO: toEventDTO(a.Event),
		Calendar: calendarSummaryDTO{
			ID:       a.Calendar.ID,
			Name:     a.Calendar.Name,
			Category: a.Calendar.Category,
		},
	}
}

type viewDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Alias       string    `json:"alias"`
	CalendarIDs []string  `json:"calendarIds"`
	ColumnCount int       `json:"columnCount"`
	PaddingPx   int       `json:"paddingPx"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toViewDTO(v *domain.View) viewDTO {
	return viewDTO{
		ID:          v.ID,
		Name:        v.Name,
		Alias:       v.Alias,
		CalendarIDs: v.CalendarIDs,
		ColumnCount: v.ColumnCount,
		PaddingPx:   v.PaddingPx,
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
