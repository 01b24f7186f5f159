package domain

import (
	"regexp"
	"strings"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	aliasRe    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func (u *User) Validate() error {
	u.Username = strings.TrimSpace(u.Username)
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if n := len(u.Username); n < 3 || n > 50 {
		return Invalidf("username must be 3-50 characters")
	}
	if !usernameRe.MatchString(u.Username) {
		return Invalidf("username may only contain letters, numbers and underscores")
	}
	if len(u.DisplayName) > 100 {
		return Invalidf("display name too long")
	}
	if len(u.Roles) == 0 {
		return Invalidf("at least one role required")
	}
	for _, r := range u.Roles {
		if !r.Valid() {
			return Invalidf("unknown role %q", r)
		}
	}
	return nil
}

func (c *Calendar) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Category = strings.TrimSpace(c.Category)
	if n := len(c.Name); n < 1 || n > 100 {
		return Invalidf("calendar name must be 1-100 characters")
	}
	if len(c.Category) > 50 {
		return Invalidf("category too long")
	}
	for _, p := range c.Permissions {
		if !p.Level.Valid() {
			return Invalidf("unknown access level %q", p.Level)
		}
	}
	return nil
}

func (e *Event) Validate() error {
	e.Subject = strings.TrimSpace(e.Subject)
	e.Description = strings.TrimSpace(e.Description)
	if n := len(e.Subject); n < 1 || n > 200 {
		return Invalidf("subject must be 1-200 characters")
	}
	if len(e.Description) > 1000 {
		return Invalidf("description too long")
	}
	if e.CalendarID == "" {
		return Invalidf("calendar id required")
	}
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return Invalidf("start and end times required")
	}
	// Strictly after; equal timestamps are rejected too.
	if !e.EndTime.After(e.StartTime) {
		return Invalidf("end time must be after start time")
	}
	return nil
}

func (v *View) Validate() error {
	v.Name = strings.TrimSpace(v.Name)
	v.Alias = strings.TrimSpace(v.Alias)
	if n := len(v.Name); n < 1 || n > 100 {
		return Invalidf("view name must be 1-100 characters")
	}
	if n := len(v.Alias); n < 1 || n > 50 {
		return Invalidf("alias must be 1-50 characters")
	}
	if !aliasRe.MatchString(v.Alias) {
		return Invalidf("alias may only contain letters, numbers, hyphens and underscores")
	}
	if len(v.CalendarIDs) == 0 {
		return Invalidf("at least one calendar required")
	}
	if v.ColumnCount < 1 || v.ColumnCount > 4 {
		return Invalidf("column count must be 1-4")
	}
	if v.PaddingPx < 0 || v.PaddingPx > 50 {
		return Invalidf("padding must be 0-50")
	}
	return nil
}
