package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamcal/internal/domain"
)

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func (s *Store) CreateCalendar(ctx context.Context, c *domain.Calendar) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Color == "" {
		c.Color = "#3174ad"
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner any
		if c.OwnerID != "" {
			owner = c.OwnerID
		}
		_, err := tx.Exec(`
			INSERT INTO calendars (id, name, category, owner_id, color, is_public, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.Name, c.Category, owner, c.Color, c.IsPublic, now, now)
		if err != nil {
			return err
		}
		for _, p := range c.Permissions {
			if _, err := tx.Exec(`
				INSERT INTO calendar_permissions (calendar_id, user_id, level)
				VALUES (?, ?, ?)
				ON CONFLICT(calendar_id, user_id) DO UPDATE SET level = excluded.level
			`, c.ID, p.UserID, string(p.Level)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanCalendar(row interface{ Scan(...any) error }) (*domain.Calendar, error) {
	var c domain.Calendar
	var owner sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Category, &owner, &c.Color, &c.IsPublic, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("calendar")
		}
		return nil, err
	}
	c.OwnerID = owner.String
	return &c, nil
}

func (s *Store) GetCalendarByID(ctx context.Context, id string) (*domain.Calendar, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, owner_id, color, is_public, created_at, updated_at
		FROM calendars WHERE id = ?`, id)
	c, err := scanCalendar(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadPermissions(ctx, map[string]*domain.Calendar{c.ID: c}, []string{c.ID}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCalendars(ctx context.Context, ids []string) ([]*domain.Calendar, error) {
	q := `
		SELECT id, name, category, owner_id, color, is_public, created_at, updated_at
		FROM calendars`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return nil, nil
		}
		q += " WHERE id IN (" + placeholders(len(ids)) + ")"
		args = idArgs(ids)
	}
	q += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Calendar
	byID := make(map[string]*domain.Calendar)
	var calIDs []string
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		byID[c.ID] = c
		calIDs = append(calIDs, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(calIDs) > 0 {
		if err := s.loadPermissions(ctx, byID, calIDs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadPermissions(ctx context.Context, byID map[string]*domain.Calendar, ids []string) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT calendar_id, user_id, level
		FROM calendar_permissions
		WHERE calendar_id IN (`+placeholders(len(ids))+`)
		ORDER BY user_id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var calID, userID, level string
		if err := rows.Scan(&calID, &userID, &level); err != nil {
			return err
		}
		if c, ok := byID[calID]; ok {
			c.Permissions = append(c.Permissions, domain.Permission{UserID: userID, Level: domain.Level(level)})
		}
	}
	return rows.Err()
}

func (s *Store) UpdateCalendar(ctx context.Context, c *domain.Calendar) error {
	c.UpdatedAt = time.Now().UTC()
	var owner any
	if c.OwnerID != "" {
		owner = c.OwnerID
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE calendars
		SET name = ?, category = ?, owner_id = ?, color = ?, is_public = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Category, owner, c.Color, c.IsPublic, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("calendar %s", c.ID)
	}
	return nil
}

func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM calendars WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFoundf("calendar %s", id)
		}
		if _, err := tx.Exec(`DELETE FROM calendar_permissions WHERE calendar_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM events WHERE calendar_id = ?`, id)
		return err
	})
}

func (s *Store) UpsertPermission(ctx context.Context, calendarID, userID string, level domain.Level) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_permissions (calendar_id, user_id, level)
		VALUES (?, ?, ?)
		ON CONFLICT(calendar_id, user_id) DO UPDATE SET level = excluded.level
	`, calendarID, userID, string(level))
	return err
}

func (s *Store) DeletePermission(ctx context.Context, calendarID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM calendar_permissions WHERE calendar_id = ? AND user_id = ?
	`, calendarID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("permission for user %s on calendar %s", userID, calendarID)
	}
	return nil
}

func (s *Store) AccessibleCalendarIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM calendars WHERE owner_id = ? OR is_public = 1
		UNION
		SELECT calendar_id FROM calendar_permissions WHERE user_id = ?
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *Store) PublicCalendarIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM calendars WHERE is_public = 1`)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *Store) AllCalendarIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM calendars`)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
