package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"teamcal/internal/access"
	"teamcal/internal/api"
	"teamcal/internal/auth"
	"teamcal/internal/config"
	"teamcal/internal/events"
	"teamcal/internal/router"
	"teamcal/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Addr: ":0", MaxBodyBytes: 1 << 20},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
			Issuer:    "teamcal",
			TokenTTL:  time.Hour,
		},
		Feed: config.FeedConfig{CompanyName: "Teamcal", ProductName: "Teamcal", Language: "EN"},
	}
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	bearer := auth.NewBearerAuth(cfg, store, zerolog.Nop())
	resolver := access.NewResolver(store)
	svc := events.NewService(store, resolver)
	handlers := api.NewHandlers(cfg, store, resolver, svc, bearer, zerolog.Nop())

	srv := httptest.NewServer(router.New(cfg, handlers, bearer, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

// do sends a JSON request and decodes the JSON response body into out (when
// out is non-nil), returning the status code.
func do(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func register(t *testing.T, srv *httptest.Server, username string) {
	t.Helper()
	code := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "password1",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, code)
	}
}

func login(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	code := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password1",
	}, &resp)
	if code != http.StatusOK || resp.Token == "" {
		t.Fatalf("login %s: status %d token %q", username, code, resp.Token)
	}
	return resp.Token
}

type calendarResp struct {
	Calendar struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		IsPublic    bool   `json:"isPublic"`
		OwnerID     string `json:"ownerId"`
		Permissions []struct {
			UserID      string `json:"userId"`
			AccessLevel string `json:"accessLevel"`
		} `json:"permissions"`
	} `json:"calendar"`
}

func createCalendar(t *testing.T, srv *httptest.Server, token string, body map[string]any) string {
	t.Helper()
	var resp calendarResp
	code := do(t, srv, http.MethodPost, "/api/calendars", token, body, &resp)
	if code != http.StatusCreated {
		t.Fatalf("create calendar: status %d", code)
	}
	return resp.Calendar.ID
}

func TestFirstRegisteredUserIsAdmin(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	register(t, srv, "bob")
	rootTok := login(t, srv, "root")
	bobTok := login(t, srv, "bob")

	// admin surface open to root, closed to bob
	if code := do(t, srv, http.MethodGet, "/api/users", rootTok, nil, nil); code != http.StatusOK {
		t.Fatalf("admin list users: %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/users", bobTok, nil, nil); code != http.StatusForbidden {
		t.Fatalf("non-admin list users: %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/users", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous list users: %d", code)
	}
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")

	code := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "root", "password": "wrong-password",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", code)
	}
	code = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody", "password": "password1",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", code)
	}

	if code := do(t, srv, http.MethodGet, "/api/auth/session", "garbage-token", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", code)
	}
}

func TestCalendarPermissionFlow(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	register(t, srv, "bob")
	rootTok := login(t, srv, "root")
	bobTok := login(t, srv, "bob")

	var bobID string
	{
		var resp struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		if code := do(t, srv, http.MethodGet, "/api/auth/session", bobTok, nil, &resp); code != http.StatusOK {
			t.Fatalf("session: %d", code)
		}
		bobID = resp.User.ID
	}

	calID := createCalendar(t, srv, rootTok, map[string]any{"name": "Team"})

	// bob cannot see the private calendar
	if code := do(t, srv, http.MethodGet, "/api/calendars/"+calID, bobTok, nil, nil); code != http.StatusForbidden {
		t.Fatalf("ungranted read: %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/calendars/"+calID, "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous read: %d", code)
	}

	// grant view
	var granted calendarResp
	code := do(t, srv, http.MethodPost, "/api/calendars/"+calID+"/permissions", rootTok, map[string]any{
		"userId": bobID, "accessLevel": "view",
	}, &granted)
	if code != http.StatusOK {
		t.Fatalf("grant: %d", code)
	}
	if len(granted.Calendar.Permissions) != 1 || granted.Calendar.Permissions[0].AccessLevel != "view" {
		t.Fatalf("permissions after grant: %+v", granted.Calendar.Permissions)
	}

	if code := do(t, srv, http.MethodGet, "/api/calendars/"+calID, bobTok, nil, nil); code != http.StatusOK {
		t.Fatalf("granted read: %d", code)
	}

	// view does not allow writing events
	event := map[string]any{
		"calendarId": calID,
		"subject":    "standup",
		"startTime":  "2025-06-10T09:00:00Z",
		"endTime":    "2025-06-10T10:00:00Z",
	}
	if code := do(t, srv, http.MethodPost, "/api/events", bobTok, event, nil); code != http.StatusForbidden {
		t.Fatalf("view-level event create: %d", code)
	}

	// re-grant at edit level overwrites in place
	code = do(t, srv, http.MethodPost, "/api/calendars/"+calID+"/permissions", rootTok, map[string]any{
		"userId": bobID, "accessLevel": "edit",
	}, &granted)
	if code != http.StatusOK {
		t.Fatalf("regrant: %d", code)
	}
	if len(granted.Calendar.Permissions) != 1 || granted.Calendar.Permissions[0].AccessLevel != "edit" {
		t.Fatalf("permissions after regrant: %+v", granted.Calendar.Permissions)
	}
	if code := do(t, srv, http.MethodPost, "/api/events", bobTok, event, nil); code != http.StatusCreated {
		t.Fatalf("edit-level event create: %d", code)
	}

	// revoke closes the calendar again
	code = do(t, srv, http.MethodDelete, "/api/calendars/"+calID+"/permissions/"+bobID, rootTok, nil, nil)
	if code != http.StatusOK {
		t.Fatalf("revoke: %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/calendars/"+calID, bobTok, nil, nil); code != http.StatusForbidden {
		t.Fatalf("read after revoke: %d", code)
	}
	// revoking again is a 404
	code = do(t, srv, http.MethodDelete, "/api/calendars/"+calID+"/permissions/"+bobID, rootTok, nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("double revoke: %d", code)
	}
}

func TestPublicCalendarAccess(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	rootTok := login(t, srv, "root")

	pubID := createCalendar(t, srv, rootTok, map[string]any{"name": "Lobby", "isPublic": true})
	createCalendar(t, srv, rootTok, map[string]any{"name": "Private"})

	event := map[string]any{
		"calendarId": pubID,
		"subject":    "open day",
		"startTime":  "2025-06-10T09:00:00Z",
		"endTime":    "2025-06-10T17:00:00Z",
	}
	if code := do(t, srv, http.MethodPost, "/api/events", rootTok, event, nil); code != http.StatusCreated {
		t.Fatalf("create event: %d", code)
	}

	// anonymous sees exactly the public calendar
	var list struct {
		Calendars []struct {
			ID string `json:"id"`
		} `json:"calendars"`
	}
	if code := do(t, srv, http.MethodGet, "/api/public/calendars", "", nil, &list); code != http.StatusOK {
		t.Fatalf("public calendars: %d", code)
	}
	if len(list.Calendars) != 1 || list.Calendars[0].ID != pubID {
		t.Fatalf("public list: %+v", list.Calendars)
	}

	var evs struct {
		Events []struct {
			Subject  string `json:"subject"`
			Calendar struct {
				ID string `json:"id"`
			} `json:"calendar"`
		} `json:"events"`
		Total int `json:"total"`
	}
	if code := do(t, srv, http.MethodGet, "/api/public/events", "", nil, &evs); code != http.StatusOK {
		t.Fatalf("public events: %d", code)
	}
	if evs.Total != 1 || evs.Events[0].Calendar.ID != pubID {
		t.Fatalf("public events: %+v", evs)
	}

	// the authenticated calendar list works anonymously too and is scoped
	if code := do(t, srv, http.MethodGet, "/api/calendars", "", nil, &list); code != http.StatusOK {
		t.Fatalf("anonymous calendars: %d", code)
	}
	if len(list.Calendars) != 1 {
		t.Fatalf("anonymous accessible list: %+v", list.Calendars)
	}
}

func TestAggregatedEvents(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	rootTok := login(t, srv, "root")

	workID := createCalendar(t, srv, rootTok, map[string]any{"name": "Work", "category": "work"})
	persID := createCalendar(t, srv, rootTok, map[string]any{"name": "Personal", "category": "home"})

	mk := func(calID, subject, start, end string) {
		code := do(t, srv, http.MethodPost, "/api/events", rootTok, map[string]any{
			"calendarId": calID, "subject": subject, "startTime": start, "endTime": end,
		}, nil)
		if code != http.StatusCreated {
			t.Fatalf("create %s: %d", subject, code)
		}
	}
	mk(workID, "sprint review", "2025-06-10T09:00:00Z", "2025-06-10T10:00:00Z")
	mk(workID, "conference", "2025-06-08T00:00:00Z", "2025-06-12T00:00:00Z")
	mk(persID, "dentist", "2025-06-10T14:00:00Z", "2025-06-10T15:00:00Z")

	var resp struct {
		Events []struct {
			Subject   string    `json:"subject"`
			StartTime time.Time `json:"startTime"`
		} `json:"events"`
		Total int `json:"total"`
	}

	if code := do(t, srv, http.MethodGet, "/api/events/aggregated", rootTok, nil, &resp); code != http.StatusOK {
		t.Fatalf("aggregated: %d", code)
	}
	if resp.Total != 3 {
		t.Fatalf("want 3 events, got %d", resp.Total)
	}
	for i := 1; i < len(resp.Events); i++ {
		if resp.Events[i].StartTime.Before(resp.Events[i-1].StartTime) {
			t.Fatal("not ordered by start time")
		}
	}

	// window straddled only by the conference
	path := "/api/events/aggregated?start=2025-06-09T00:00:00Z&end=2025-06-09T12:00:00Z"
	if code := do(t, srv, http.MethodGet, path, rootTok, nil, &resp); code != http.StatusOK {
		t.Fatalf("windowed: %d", code)
	}
	if resp.Total != 1 || resp.Events[0].Subject != "conference" {
		t.Fatalf("windowed events: %+v", resp.Events)
	}

	// category filter
	if code := do(t, srv, http.MethodGet, "/api/events/aggregated?category=home", rootTok, nil, &resp); code != http.StatusOK {
		t.Fatalf("category: %d", code)
	}
	if resp.Total != 1 || resp.Events[0].Subject != "dentist" {
		t.Fatalf("category events: %+v", resp.Events)
	}

	// search is case-insensitive
	if code := do(t, srv, http.MethodGet, "/api/events/aggregated?search=SPRINT", rootTok, nil, &resp); code != http.StatusOK {
		t.Fatalf("search: %d", code)
	}
	if resp.Total != 1 || resp.Events[0].Subject != "sprint review" {
		t.Fatalf("search events: %+v", resp.Events)
	}

	// explicit calendar selection narrows
	if code := do(t, srv, http.MethodGet, "/api/events/aggregated?calendarIds="+persID, rootTok, nil, &resp); code != http.StatusOK {
		t.Fatalf("calendarIds: %d", code)
	}
	if resp.Total != 1 || resp.Events[0].Subject != "dentist" {
		t.Fatalf("scoped events: %+v", resp.Events)
	}

	// malformed window is a 400
	if code := do(t, srv, http.MethodGet, "/api/events/aggregated?start=notatime", rootTok, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad window: %d", code)
	}
}

func TestEventValidationAndStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	rootTok := login(t, srv, "root")
	calID := createCalendar(t, srv, rootTok, map[string]any{"name": "Team"})

	// end before start
	code := do(t, srv, http.MethodPost, "/api/events", rootTok, map[string]any{
		"calendarId": calID,
		"subject":    "backwards",
		"startTime":  "2025-06-10T10:00:00Z",
		"endTime":    "2025-06-10T09:00:00Z",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("backwards event: %d", code)
	}

	// unknown calendar
	code = do(t, srv, http.MethodPost, "/api/events", rootTok, map[string]any{
		"calendarId": "ghost",
		"subject":    "nowhere",
		"startTime":  "2025-06-10T09:00:00Z",
		"endTime":    "2025-06-10T10:00:00Z",
	}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("event on missing calendar: %d", code)
	}

	// unknown fields rejected
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/events", strings.NewReader(`{"bogus":true}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+rootTok)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: %d", resp.StatusCode)
	}

	if code := do(t, srv, http.MethodGet, "/api/events/ghost", rootTok, nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing event: %d", code)
	}
}

func TestLastAdminGuards(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	register(t, srv, "bob")
	rootTok := login(t, srv, "root")

	var rootID, bobID string
	{
		var resp struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"users"`
		}
		if code := do(t, srv, http.MethodGet, "/api/users", rootTok, nil, &resp); code != http.StatusOK {
			t.Fatalf("list users: %d", code)
		}
		for _, u := range resp.Users {
			switch u.Username {
			case "root":
				rootID = u.ID
			case "bob":
				bobID = u.ID
			}
		}
	}

	// demoting the only admin is rejected
	code := do(t, srv, http.MethodPut, "/api/users/"+rootID, rootTok, map[string]any{
		"roles": []string{"user"},
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("demote last admin: %d", code)
	}

	// deleting the only admin is rejected
	if code := do(t, srv, http.MethodDelete, "/api/users/"+rootID, rootTok, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("delete last admin: %d", code)
	}

	// promote bob, then root can be deleted
	code = do(t, srv, http.MethodPut, "/api/users/"+bobID, rootTok, map[string]any{
		"roles": []string{"admin", "user"},
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("promote bob: %d", code)
	}
	if code := do(t, srv, http.MethodDelete, "/api/users/"+rootID, rootTok, nil, nil); code != http.StatusOK {
		t.Fatalf("delete root: %d", code)
	}
}

func TestViewAliasFlow(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	rootTok := login(t, srv, "root")

	calID := createCalendar(t, srv, rootTok, map[string]any{"name": "Lobby", "isPublic": true})

	var created struct {
		View struct {
			ID          string `json:"id"`
			Alias       string `json:"alias"`
			ColumnCount int    `json:"columnCount"`
		} `json:"view"`
	}
	code := do(t, srv, http.MethodPost, "/api/views", rootTok, map[string]any{
		"name":        "Front desk",
		"alias":       "front-desk",
		"calendarIds": []string{calID},
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create view: %d", code)
	}
	if created.View.ColumnCount != 2 {
		t.Fatalf("default column count: %d", created.View.ColumnCount)
	}

	// duplicate alias rejected
	code = do(t, srv, http.MethodPost, "/api/views", rootTok, map[string]any{
		"name":        "Other",
		"alias":       "front-desk",
		"calendarIds": []string{calID},
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate alias: %d", code)
	}

	// view referencing a missing calendar rejected
	code = do(t, srv, http.MethodPost, "/api/views", rootTok, map[string]any{
		"name":        "Broken",
		"alias":       "broken",
		"calendarIds": []string{"ghost"},
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("missing calendar reference: %d", code)
	}

	// alias endpoint is anonymous
	var byAlias struct {
		View struct {
			ID string `json:"id"`
		} `json:"view"`
		Calendars []struct {
			ID string `json:"id"`
		} `json:"calendars"`
	}
	if code := do(t, srv, http.MethodGet, "/api/views/alias/front-desk", "", nil, &byAlias); code != http.StatusOK {
		t.Fatalf("view by alias: %d", code)
	}
	if byAlias.View.ID != created.View.ID || len(byAlias.Calendars) != 1 {
		t.Fatalf("alias payload: %+v", byAlias)
	}
	if code := do(t, srv, http.MethodGet, "/api/views/alias/nope", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing alias: %d", code)
	}

	// view management is admin-only
	if code := do(t, srv, http.MethodGet, "/api/views", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous view list: %d", code)
	}
}

func TestCalendarFeed(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "root")
	rootTok := login(t, srv, "root")

	calID := createCalendar(t, srv, rootTok, map[string]any{"name": "Lobby", "isPublic": true})
	code := do(t, srv, http.MethodPost, "/api/events", rootTok, map[string]any{
		"calendarId": calID,
		"subject":    "open day",
		"startTime":  "2025-06-10T09:00:00Z",
		"endTime":    "2025-06-10T17:00:00Z",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create event: %d", code)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/feeds/calendars/" + calID + ".ics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type: %s", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	ics := string(body)
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:open day"} {
		if !strings.Contains(ics, want) {
			t.Fatalf("feed missing %q:\n%s", want, ics)
		}
	}

	// a private calendar's feed needs credentials
	privID := createCalendar(t, srv, rootTok, map[string]any{"name": "Private"})
	resp, err = srv.Client().Get(fmt.Sprintf("%s/api/feeds/calendars/%s.ics", srv.URL, privID))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("private feed anonymous: %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
}
