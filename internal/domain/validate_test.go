package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUserValidate(t *testing.T) {
	valid := func() User {
		return User{Username: "alice", DisplayName: "Alice", Roles: []Role{RoleUser}}
	}

	cases := []struct {
		name    string
		mutate  func(*User)
		wantErr bool
	}{
		{"ok", func(u *User) {}, false},
		{"trims whitespace", func(u *User) { u.Username = "  alice  " }, false},
		{"too short", func(u *User) { u.Username = "ab" }, true},
		{"too long", func(u *User) { u.Username = strings.Repeat("a", 51) }, true},
		{"bad characters", func(u *User) { u.Username = "alice!" }, true},
		{"no roles", func(u *User) { u.Roles = nil }, true},
		{"unknown role", func(u *User) { u.Roles = []Role{"superuser"} }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := valid()
			tc.mutate(&u)
			err := u.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	valid := func() Event {
		return Event{CalendarID: "c1", Subject: "standup", StartTime: base, EndTime: base.Add(time.Hour)}
	}

	cases := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"ok", func(e *Event) {}, false},
		{"empty subject", func(e *Event) { e.Subject = "  " }, true},
		{"subject too long", func(e *Event) { e.Subject = strings.Repeat("x", 201) }, true},
		{"description too long", func(e *Event) { e.Description = strings.Repeat("x", 1001) }, true},
		{"missing calendar", func(e *Event) { e.CalendarID = "" }, true},
		{"zero times", func(e *Event) { e.StartTime, e.EndTime = time.Time{}, time.Time{} }, true},
		{"end before start", func(e *Event) { e.EndTime = base.Add(-time.Hour) }, true},
		{"end equals start", func(e *Event) { e.EndTime = base }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("error not tagged as validation: %v", err)
			}
		})
	}
}

func TestViewValidate(t *testing.T) {
	valid := func() View {
		return View{Name: "Lobby", Alias: "lobby-1", CalendarIDs: []string{"c1"}, ColumnCount: 2, PaddingPx: 8}
	}

	cases := []struct {
		name    string
		mutate  func(*View)
		wantErr bool
	}{
		{"ok", func(v *View) {}, false},
		{"alias with slash", func(v *View) { v.Alias = "a/b" }, true},
		{"alias with space", func(v *View) { v.Alias = "a b" }, true},
		{"alias too long", func(v *View) { v.Alias = strings.Repeat("a", 51) }, true},
		{"no calendars", func(v *View) { v.CalendarIDs = nil }, true},
		{"zero columns", func(v *View) { v.ColumnCount = 0 }, true},
		{"too many columns", func(v *View) { v.ColumnCount = 5 }, true},
		{"negative padding", func(v *View) { v.PaddingPx = -1 }, true},
		{"padding over limit", func(v *View) { v.PaddingPx = 51 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := valid()
			tc.mutate(&v)
			err := v.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLevelSatisfies(t *testing.T) {
	if !LevelEdit.Satisfies(LevelView) {
		t.Error("edit should satisfy view")
	}
	if !LevelEdit.Satisfies(LevelEdit) {
		t.Error("edit should satisfy edit")
	}
	if !LevelView.Satisfies(LevelView) {
		t.Error("view should satisfy view")
	}
	if LevelView.Satisfies(LevelEdit) {
		t.Error("view must not satisfy edit")
	}
}
